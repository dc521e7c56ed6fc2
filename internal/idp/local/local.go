// Package local implements idp.Provider on top of the application's own
// SQLite database: account records with argon2id password hashes and an
// in-memory current identity that is broadcast to auth-state subscribers.
package local

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/ocakli/envanter/internal/idp"
)

type Provider struct {
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex
	current *idp.Identity
	subs    map[int]chan *idp.Identity
	nextID  int
}

func NewProvider(db *sql.DB, logger *slog.Logger) *Provider {
	return &Provider{
		db:     db,
		logger: logger,
		subs:   make(map[int]chan *idp.Identity),
	}
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*idp.Identity, error) {
	var (
		id        string
		hash      string
		anonymous bool
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, password_hash, anonymous FROM accounts WHERE email = ?
	`, email).Scan(&id, &hash, &anonymous)
	if err == sql.ErrNoRows {
		return nil, idp.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	ok, err := verifyPassword(hash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credential: %w", err)
	}
	if !ok {
		return nil, idp.ErrInvalidCredential
	}

	identity := &idp.Identity{UID: id, Email: email, Anonymous: anonymous}
	p.setCurrent(identity)
	p.logger.Info("signed in", "email", email)
	return identity, nil
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*idp.Identity, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ?)
	`, email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if exists {
		return nil, idp.ErrAccountExists
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.NewString()
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash) VALUES (?, ?, ?)
	`, id, email, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	identity := &idp.Identity{UID: id, Email: email}
	p.setCurrent(identity)
	p.logger.Info("account created", "email", email)
	return identity, nil
}

func (p *Provider) SignOut(_ context.Context) error {
	p.setCurrent(nil)
	return nil
}

// Subscribe delivers the current auth state immediately and then on every
// change. Undelivered states coalesce to the latest.
func (p *Provider) Subscribe() (<-chan *idp.Identity, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan *idp.Identity, 1)
	p.subs[id] = ch
	ch <- copyIdentity(p.current)

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (p *Provider) setCurrent(identity *idp.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = identity
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- copyIdentity(identity):
		default:
		}
	}
}

func copyIdentity(identity *idp.Identity) *idp.Identity {
	if identity == nil {
		return nil
	}
	c := *identity
	return &c
}
