// Package service holds the application services between the web layer and
// the stores: input validation, normalization, and keeping the live feeds
// in sync after every mutation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ocakli/envanter/internal/domain"
)

// ErrValidation wraps all user-correctable input errors so handlers can
// render them inline instead of failing the request.
var ErrValidation = errors.New("validation failed")

// refresher is the subset of live.Feed the services require.
type refresher interface {
	Refresh(ctx context.Context) error
}

// inventoryRepository is the subset of store.InventoryStore that
// InventoryService requires.
type inventoryRepository interface {
	Create(ctx context.Context, item *domain.Item) (*domain.Item, error)
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	Update(ctx context.Context, id string, item *domain.Item) error
	Delete(ctx context.Context, id string) error
}

// ItemInput carries the submitted fields for creating or updating an
// inventory record.
type ItemInput struct {
	Model        string
	SerialNumber string
	BoxStatus    domain.BoxStatus
	Location     string
	UsageArea    string
	EntryDate    time.Time
	ExitDate     *time.Time
	Note         string
}

type InventoryService struct {
	store  inventoryRepository
	feed   refresher
	logger *slog.Logger
}

func NewInventoryService(store inventoryRepository, feed refresher, logger *slog.Logger) *InventoryService {
	return &InventoryService{store: store, feed: feed, logger: logger}
}

func (s *InventoryService) CreateItem(ctx context.Context, input ItemInput) (*domain.Item, error) {
	item, err := itemFromInput(input)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	s.logger.Info("item created", "id", created.ID, "model", created.Model)

	s.refreshFeed(ctx)
	return created, nil
}

func (s *InventoryService) UpdateItem(ctx context.Context, id string, input ItemInput) (*domain.Item, error) {
	item, err := itemFromInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, id, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	s.logger.Info("item updated", "id", id)

	s.refreshFeed(ctx)
	return s.store.GetByID(ctx, id)
}

func (s *InventoryService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.store.GetByID(ctx, id)
}

func (s *InventoryService) DeleteItem(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	s.logger.Info("item deleted", "id", id)

	s.refreshFeed(ctx)
	return nil
}

func (s *InventoryService) refreshFeed(ctx context.Context) {
	if err := s.feed.Refresh(ctx); err != nil {
		s.logger.Error("failed to refresh inventory feed", "error", err)
	}
}

// itemFromInput validates and normalizes the submitted fields. The box
// status defaults to the original box when left empty.
func itemFromInput(input ItemInput) (*domain.Item, error) {
	if input.Model == "" {
		return nil, fmt.Errorf("%w: model is required", ErrValidation)
	}
	if input.SerialNumber == "" {
		return nil, fmt.Errorf("%w: serial number is required", ErrValidation)
	}
	if input.Location == "" {
		return nil, fmt.Errorf("%w: location is required", ErrValidation)
	}
	if input.EntryDate.IsZero() {
		return nil, fmt.Errorf("%w: entry date is required", ErrValidation)
	}

	boxStatus := input.BoxStatus
	if boxStatus == "" {
		boxStatus = domain.BoxOriginal
	}
	if !boxStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown box status %q", ErrValidation, boxStatus)
	}

	if input.ExitDate != nil && input.ExitDate.Before(input.EntryDate) {
		return nil, fmt.Errorf("%w: exit date precedes entry date", ErrValidation)
	}

	return &domain.Item{
		Model:        input.Model,
		SerialNumber: input.SerialNumber,
		BoxStatus:    boxStatus,
		Location:     input.Location,
		UsageArea:    input.UsageArea,
		EntryDate:    input.EntryDate,
		ExitDate:     input.ExitDate,
		Note:         input.Note,
	}, nil
}
