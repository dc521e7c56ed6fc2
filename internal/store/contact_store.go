package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ocakli/envanter/internal/domain"
)

// ContactStore owns the contacts collection. Legacy rows may carry
// first_name/last_name instead of full_name; all three columns round-trip
// untouched.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) Create(ctx context.Context, contact *domain.Contact) (*domain.Contact, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, full_name, first_name, last_name, company, department, title, phone, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, contact.FullName, contact.FirstName, contact.LastName, contact.Company,
		contact.Department, contact.Title, contact.Phone, contact.Address, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ContactStore) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	contact := &domain.Contact{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, first_name, last_name, company, department, title, phone, address, created_at
		FROM contacts WHERE id = ?
	`, id).Scan(&contact.ID, &contact.FullName, &contact.FirstName, &contact.LastName, &contact.Company,
		&contact.Department, &contact.Title, &contact.Phone, &contact.Address, &contact.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return contact, nil
}

// List returns the complete collection in stable insertion order.
func (s *ContactStore) List(ctx context.Context) ([]*domain.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, first_name, last_name, company, department, title, phone, address, created_at
		FROM contacts ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var contacts []*domain.Contact
	for rows.Next() {
		contact := &domain.Contact{}
		if err := rows.Scan(&contact.ID, &contact.FullName, &contact.FirstName, &contact.LastName, &contact.Company,
			&contact.Department, &contact.Title, &contact.Phone, &contact.Address, &contact.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}

	return contacts, nil
}

// Update replaces all mutable fields of the identified document.
func (s *ContactStore) Update(ctx context.Context, id string, contact *domain.Contact) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE contacts
		SET full_name = ?, first_name = ?, last_name = ?, company = ?, department = ?, title = ?, phone = ?, address = ?
		WHERE id = ?
	`, contact.FullName, contact.FirstName, contact.LastName, contact.Company,
		contact.Department, contact.Title, contact.Phone, contact.Address, id)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *ContactStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM contacts WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
