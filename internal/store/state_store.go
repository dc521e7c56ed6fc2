package store

import (
	"context"
	"database/sql"
	"fmt"
)

// StateStore is a single-table key/value store for small pieces of local
// state that must survive process restarts, such as the last-known session
// role.
type StateStore struct {
	db *sql.DB
}

func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

// Get returns the stored value, or the empty string when the key is absent.
func (s *StateStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM local_state WHERE key = ?
	`, key).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %q: %w", key, err)
	}

	return value, nil
}

func (s *StateStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %q: %w", key, err)
	}

	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *StateStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM local_state WHERE key = ?
	`, key)
	if err != nil {
		return fmt.Errorf("failed to delete state %q: %w", key, err)
	}

	return nil
}
