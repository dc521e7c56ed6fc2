package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ocakli/envanter/internal/domain"
	"github.com/ocakli/envanter/internal/store"
)

// contactRepository is the subset of store.ContactStore that ContactService
// requires.
type contactRepository interface {
	Create(ctx context.Context, contact *domain.Contact) (*domain.Contact, error)
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
	Update(ctx context.Context, id string, contact *domain.Contact) error
	Delete(ctx context.Context, id string) error
}

// ContactInput carries the submitted fields for creating or updating a
// contact.
type ContactInput struct {
	FullName   string
	Company    string
	Department string
	Title      string
	Phone      string
	Address    string
}

type ContactService struct {
	store  contactRepository
	feed   refresher
	logger *slog.Logger
}

func NewContactService(store contactRepository, feed refresher, logger *slog.Logger) *ContactService {
	return &ContactService{store: store, feed: feed, logger: logger}
}

func (s *ContactService) CreateContact(ctx context.Context, input ContactInput) (*domain.Contact, error) {
	contact, err := contactFromInput(input)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	s.logger.Info("contact created", "id", created.ID, "name", created.DisplayName())

	s.refreshFeed(ctx)
	return created, nil
}

func (s *ContactService) UpdateContact(ctx context.Context, id string, input ContactInput) (*domain.Contact, error) {
	contact, err := contactFromInput(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	if existing == nil {
		return nil, store.ErrNotFound
	}
	// The form never carries the legacy name columns; they survive edits
	// unchanged.
	contact.FirstName = existing.FirstName
	contact.LastName = existing.LastName

	if err := s.store.Update(ctx, id, contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	s.logger.Info("contact updated", "id", id)

	s.refreshFeed(ctx)
	return s.store.GetByID(ctx, id)
}

func (s *ContactService) GetContact(ctx context.Context, id string) (*domain.Contact, error) {
	return s.store.GetByID(ctx, id)
}

func (s *ContactService) DeleteContact(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	s.logger.Info("contact deleted", "id", id)

	s.refreshFeed(ctx)
	return nil
}

func (s *ContactService) refreshFeed(ctx context.Context) {
	if err := s.feed.Refresh(ctx); err != nil {
		s.logger.Error("failed to refresh contact feed", "error", err)
	}
}

// contactFromInput validates and normalizes the submitted fields. Phone
// numbers are stored in display grouping.
func contactFromInput(input ContactInput) (*domain.Contact, error) {
	if input.FullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if input.Company == "" {
		return nil, fmt.Errorf("%w: company is required", ErrValidation)
	}

	return &domain.Contact{
		FullName:   input.FullName,
		Company:    input.Company,
		Department: input.Department,
		Title:      input.Title,
		Phone:      domain.FormatPhone(input.Phone),
		Address:    input.Address,
	}, nil
}
