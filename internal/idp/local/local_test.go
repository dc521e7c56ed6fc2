package local

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocakli/envanter/internal/db"
	"github.com/ocakli/envanter/internal/idp"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return NewProvider(d, slog.Default())
}

func TestCreateAccountAndSignIn(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	created, err := p.CreateAccount(ctx, "admin@envanter.local", "s3cret!")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "admin@envanter.local", created.Email)

	signedIn, err := p.SignIn(ctx, "admin@envanter.local", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, created.UID, signedIn.UID)
}

func TestSignInUnknownAccount(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.SignIn(context.Background(), "ghost@envanter.local", "pw")
	assert.ErrorIs(t, err, idp.ErrAccountNotFound)
}

func TestSignInWrongPassword(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "admin@envanter.local", "right")
	require.NoError(t, err)

	_, err = p.SignIn(ctx, "admin@envanter.local", "wrong")
	assert.ErrorIs(t, err, idp.ErrInvalidCredential)
}

func TestCreateAccountDuplicate(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "guest@envanter.local", "pw1")
	require.NoError(t, err)

	_, err = p.CreateAccount(ctx, "guest@envanter.local", "pw2")
	assert.ErrorIs(t, err, idp.ErrAccountExists)
}

func TestSubscribeFiresImmediately(t *testing.T) {
	p := newTestProvider(t)

	ch, cancel := p.Subscribe()
	defer cancel()

	// Nobody is signed in yet, so the first emission is nil.
	first := <-ch
	assert.Nil(t, first)
}

func TestSubscribeSeesSignInAndSignOut(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	ch, cancel := p.Subscribe()
	defer cancel()
	<-ch // drain initial nil

	_, err := p.CreateAccount(ctx, "admin@envanter.local", "pw")
	require.NoError(t, err)

	identity := <-ch
	require.NotNil(t, identity)
	assert.Equal(t, "admin@envanter.local", identity.Email)

	require.NoError(t, p.SignOut(ctx))
	assert.Nil(t, <-ch)
}

func TestSubscribeCancelReleasesListener(t *testing.T) {
	p := newTestProvider(t)

	ch, cancel := p.Subscribe()
	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)

	// Later state changes must not panic on the closed channel.
	require.NoError(t, p.SignOut(context.Background()))
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("GuestUser123!")
	require.NoError(t, err)

	ok, err := verifyPassword(hash, "GuestUser123!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword(hash, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = verifyPassword("not-a-hash", "pw")
	assert.Error(t, err)
}
