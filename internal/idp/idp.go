// Package idp defines the identity-provider operations the session layer
// consumes: credentialed sign-in, account creation, sign-out, and an
// auth-state stream that fires once immediately with the current state.
package idp

import (
	"context"
	"errors"
)

// Identity is the authenticated principal reported by the provider.
type Identity struct {
	UID       string
	Email     string
	Anonymous bool
}

var (
	// ErrAccountNotFound signals sign-in against an unknown account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredential signals sign-in with a wrong password.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrAccountExists signals account creation for a taken email.
	ErrAccountExists = errors.New("account already exists")
)

// Provider abstracts the external identity provider.
type Provider interface {
	// SignIn authenticates the credentials and makes the account the
	// current identity.
	SignIn(ctx context.Context, email, password string) (*Identity, error)

	// CreateAccount provisions a new account and signs it in.
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)

	// SignOut clears the current identity.
	SignOut(ctx context.Context) error

	// Subscribe delivers the current identity (or nil) immediately, then
	// again on every auth-state change. The cancel func releases the
	// listener; rely on it, not garbage collection.
	Subscribe() (<-chan *Identity, func())
}
