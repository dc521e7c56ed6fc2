// Package session derives the application role from identity-provider
// state, persists a fallback role flag across restarts, and enforces the
// inactivity timeout. The role it exposes is the sole authorization signal
// in the system and is advisory: the storage layer trusts its callers.
package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ocakli/envanter/internal/idp"
)

// Role is the client-derived authorization level.
type Role string

const (
	RoleNone  Role = ""
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

// The designated accounts. The guest credential is deliberately fixed and
// shared; it grants read-only access by convention.
const (
	adminEmail    = "admin@envanter.local"
	guestEmail    = "guest@envanter.local"
	guestPassword = "GuestUser123!"
)

// roleKey is the single local-storage key holding the last-known role.
const roleKey = "user_role"

// DefaultTimeout is the inactivity window after which the session expires.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrInvalidPassword is returned when the admin password fails the
	// local hash pre-check; nothing is sent to the provider in that case.
	ErrInvalidPassword = errors.New("invalid admin password")
	// ErrProvisioning is returned when auto-creating a missing designated
	// account fails; it is distinct from a plain sign-in failure.
	ErrProvisioning = errors.New("account provisioning failed")
)

// Identity is the session's view of who is signed in. Synthesized is set
// when the identity was reconstructed from the persisted role flag rather
// than delivered by the provider.
type Identity struct {
	UID         string
	Email       string
	Synthesized bool
}

// StateStore is the subset of store.StateStore the controller requires.
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ControllerOptions groups dependencies for Controller.
type ControllerOptions struct {
	Provider idp.Provider
	State    StateStore
	Logger   *slog.Logger

	// AdminPasswordHash is the externally supplied SHA-256 hex digest the
	// admin password is checked against before any provider call.
	AdminPasswordHash string

	// Timeout defaults to DefaultTimeout; Now defaults to time.Now.
	Timeout time.Duration
	Now     func() time.Time
}

// Controller is the process-wide session. All transitions are serialized
// under one mutex, so overlapping login calls resolve last-call-wins.
type Controller struct {
	provider  idp.Provider
	state     StateStore
	logger    *slog.Logger
	adminHash string
	timeout   time.Duration
	now       func() time.Time

	mu         sync.Mutex
	role       Role
	identity   *Identity
	resolved   bool
	deadline   time.Time
	timer      *time.Timer
	expired    bool
	cancelAuth func()
}

func NewController(opts ControllerOptions) *Controller {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		provider:  opts.Provider,
		state:     opts.State,
		logger:    logger,
		adminHash: strings.ToLower(opts.AdminPasswordHash),
		timeout:   timeout,
		now:       now,
	}
}

// Start subscribes to the provider's auth-state stream and resolves the
// initial session state before returning. Role-dependent consumers may
// only be wired after Start.
func (c *Controller) Start(ctx context.Context) {
	ch, cancel := c.provider.Subscribe()
	c.cancelAuth = cancel
	c.applyAuthState(ctx, <-ch)
	go func() {
		for identity := range ch {
			c.applyAuthState(context.Background(), identity)
		}
	}()
}

// Close releases the auth-state listener and stops the inactivity timer.
func (c *Controller) Close() {
	if c.cancelAuth != nil {
		c.cancelAuth()
	}
	c.mu.Lock()
	c.disarmLocked()
	c.mu.Unlock()
}

// applyAuthState derives role and identity from a provider emission. A nil
// identity consults the persisted role flag and, when one exists, restores
// the session with a synthesized identity so that a non-none role always
// has an identity attached.
func (c *Controller) applyAuthState(ctx context.Context, identity *idp.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.resolved = true }()

	if identity != nil {
		role := RoleAdmin
		if identity.Anonymous || identity.Email == guestEmail {
			role = RoleGuest
		}
		c.role = role
		c.identity = &Identity{UID: identity.UID, Email: identity.Email}
		c.armLocked()
		return
	}

	stored, err := c.state.Get(ctx, roleKey)
	if err != nil {
		c.logger.Warn("failed to read persisted role", "error", err)
	}
	switch Role(stored) {
	case RoleAdmin:
		c.role = RoleAdmin
		c.identity = &Identity{UID: "local-admin", Email: "admin@local", Synthesized: true}
		c.armLocked()
	case RoleGuest:
		c.role = RoleGuest
		c.identity = &Identity{UID: "local-guest", Email: "guest@local", Synthesized: true}
		c.armLocked()
	default:
		c.role = RoleNone
		c.identity = nil
		c.disarmLocked()
	}
}

// LoginAdmin checks the password against the configured hash, then signs
// in as the designated admin account, provisioning it on first use.
func (c *Controller) LoginAdmin(ctx context.Context, password string) error {
	if !c.checkAdminPassword(password) {
		return ErrInvalidPassword
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	identity, err := c.signInOrProvision(ctx, adminEmail, password)
	if err != nil {
		return err
	}

	c.commitLoginLocked(ctx, RoleAdmin, identity)
	return nil
}

// LoginGuest signs in as the fixed shared guest account, provisioning it
// on first use.
func (c *Controller) LoginGuest(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	identity, err := c.signInOrProvision(ctx, guestEmail, guestPassword)
	if err != nil {
		return err
	}

	c.commitLoginLocked(ctx, RoleGuest, identity)
	return nil
}

func (c *Controller) commitLoginLocked(ctx context.Context, role Role, identity *idp.Identity) {
	if err := c.state.Set(ctx, roleKey, string(role)); err != nil {
		c.logger.Warn("failed to persist role", "error", err)
	}
	c.role = role
	c.identity = &Identity{UID: identity.UID, Email: identity.Email}
	c.expired = false
	c.armLocked()
	c.logger.Info("logged in", "role", role, "email", identity.Email)
}

// signInOrProvision attempts sign-in and falls back to creating the
// account with the same credentials when it does not exist yet (or the
// stored credential no longer matches a fresh deployment).
func (c *Controller) signInOrProvision(ctx context.Context, email, password string) (*idp.Identity, error) {
	identity, err := c.provider.SignIn(ctx, email, password)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, idp.ErrAccountNotFound) && !errors.Is(err, idp.ErrInvalidCredential) {
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}

	c.logger.Info("designated account unavailable, provisioning", "email", email, "reason", err)
	identity, cerr := c.provider.CreateAccount(ctx, email, password)
	if cerr != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, cerr)
	}
	return identity, nil
}

// Logout clears the persisted role, signs out of the provider
// (best-effort) and resets the session. It never fails.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logoutLocked(ctx)
	c.logger.Info("logged out")
}

// logoutLocked runs the full logout under mu so no login can interleave
// with it. The provider calls are safe to make while holding mu: auth-state
// broadcasts are non-blocking and applied on a separate goroutine.
func (c *Controller) logoutLocked(ctx context.Context) {
	if err := c.state.Delete(ctx, roleKey); err != nil {
		c.logger.Warn("failed to clear persisted role", "error", err)
	}
	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Warn("provider sign-out failed", "error", err)
	}
	c.role = RoleNone
	c.identity = nil
	c.disarmLocked()
}

// Touch restarts the inactivity countdown. It is called on every user
// interaction and does nothing while unauthenticated.
func (c *Controller) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.role == RoleNone {
		return
	}
	c.armLocked()
}

// Role returns the current role.
func (c *Controller) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Identity returns a copy of the current identity, or nil.
func (c *Controller) Identity() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	identity := *c.identity
	return &identity
}

// Resolved reports whether the first provider emission has been processed.
func (c *Controller) Resolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}

// ConsumeExpiredNotice reports whether the session expired since the last
// call, clearing the notice. The login view shows it once.
func (c *Controller) ConsumeExpiredNotice() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	expired := c.expired
	c.expired = false
	return expired
}

func (c *Controller) checkAdminPassword(password string) bool {
	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(c.adminHash)) == 1
}

// armLocked (re)starts the single-shot inactivity timer. Caller holds mu.
func (c *Controller) armLocked() {
	c.deadline = c.now().Add(c.timeout)
	if c.timer == nil {
		c.timer = time.AfterFunc(c.timeout, c.expire)
		return
	}
	c.timer.Reset(c.timeout)
}

// disarmLocked stops the timer. Caller holds mu.
func (c *Controller) disarmLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
}

// expire runs when the timer fires. Interactions move the deadline, so a
// stale firing reschedules instead of logging out. The deadline check and
// the logout happen under one lock acquisition: a login that commits while
// the timer callback is pending either moves the deadline before expire
// gets the lock, or waits until the expiry has fully completed.
func (c *Controller) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.role == RoleNone {
		return
	}
	now := c.now()
	if now.Before(c.deadline) {
		c.timer.Reset(c.deadline.Sub(now))
		return
	}

	c.logger.Info("session expired after inactivity", "timeout", c.timeout)
	c.logoutLocked(context.Background())
	c.expired = true
}
