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

// InventoryStore owns the inventory collection. Document ids are opaque
// UUID strings assigned on create; created_at is assigned server-side.
type InventoryStore struct {
	db *sql.DB
}

func NewInventoryStore(db *sql.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

func (s *InventoryStore) Create(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (id, model, serial_number, box_status, location, usage_area, entry_date, exit_date, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, item.Model, item.SerialNumber, string(item.BoxStatus), item.Location,
		item.UsageArea, item.EntryDate, nullTime(item.ExitDate), item.Note, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory record: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *InventoryStore) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	item := &domain.Item{}
	var exitDate sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, model, serial_number, box_status, location, usage_area, entry_date, exit_date, note, created_at
		FROM inventory WHERE id = ?
	`, id).Scan(&item.ID, &item.Model, &item.SerialNumber, &item.BoxStatus, &item.Location,
		&item.UsageArea, &item.EntryDate, &exitDate, &item.Note, &item.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory record: %w", err)
	}
	if exitDate.Valid {
		item.ExitDate = &exitDate.Time
	}

	return item, nil
}

// List returns the complete collection in stable insertion order.
func (s *InventoryStore) List(ctx context.Context) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, serial_number, box_status, location, usage_area, entry_date, exit_date, note, created_at
		FROM inventory ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var items []*domain.Item
	for rows.Next() {
		item := &domain.Item{}
		var exitDate sql.NullTime
		if err := rows.Scan(&item.ID, &item.Model, &item.SerialNumber, &item.BoxStatus, &item.Location,
			&item.UsageArea, &item.EntryDate, &exitDate, &item.Note, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory record: %w", err)
		}
		if exitDate.Valid {
			item.ExitDate = &exitDate.Time
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}

	return items, nil
}

// Update replaces all mutable fields of the identified document.
func (s *InventoryStore) Update(ctx context.Context, id string, item *domain.Item) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET model = ?, serial_number = ?, box_status = ?, location = ?, usage_area = ?, entry_date = ?, exit_date = ?, note = ?
		WHERE id = ?
	`, item.Model, item.SerialNumber, string(item.BoxStatus), item.Location,
		item.UsageArea, item.EntryDate, nullTime(item.ExitDate), item.Note, id)
	if err != nil {
		return fmt.Errorf("failed to update inventory record: %w", err)
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

func (s *InventoryStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM inventory WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory record: %w", err)
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

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
