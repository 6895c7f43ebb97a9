package service

import (
	"context"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// AddressInput carries the fields a caller may set on an address.
type AddressInput struct {
	Label      string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

// AddressService defines the interface for address book business logic.
// Every method scopes the address to its owning user: an address reached
// through the wrong user behaves as if it did not exist.
type AddressService interface {
	Create(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error)
	Get(ctx context.Context, userID, addressID uuid.UUID) (*domain.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, patch repository.AddressPatch) (*domain.Address, error)
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) error
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
}

type addressService struct {
	addresses repository.AddressRepository
	users     repository.UserRepository
}

// NewAddressService creates a new instance of AddressService
func NewAddressService(addresses repository.AddressRepository, users repository.UserRepository) AddressService {
	return &addressService{
		addresses: addresses,
		users:     users,
	}
}

// Create stores a new address for the user. Marking it default demotes the
// previous default in the same transaction, so at most one default survives.
func (s *addressService) Create(ctx context.Context, userID uuid.UUID, input AddressInput) (*domain.Address, error) {
	now := time.Now().UTC()
	address := &domain.Address{
		ID:         uuid.New(),
		UserID:     userID,
		Label:      input.Label,
		Street:     input.Street,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		Country:    input.Country,
		IsDefault:  input.IsDefault,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.addresses.Create(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

// Get fetches one address, hiding addresses owned by other users.
func (s *addressService) Get(ctx context.Context, userID, addressID uuid.UUID) (*domain.Address, error) {
	address, err := s.addresses.FindByID(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if address.UserID != userID {
		return nil, repository.ErrAddressNotFound
	}
	return address, nil
}

// ListByUser returns the user's address book, default first. Listing for a
// missing user reports ErrUserNotFound rather than an empty book.
func (s *addressService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.addresses.ListByUser(ctx, userID)
}

// Update applies a partial update to an owned address. Promoting it to
// default demotes the previous default atomically.
func (s *addressService) Update(ctx context.Context, userID, addressID uuid.UUID, patch repository.AddressPatch) (*domain.Address, error) {
	if _, err := s.Get(ctx, userID, addressID); err != nil {
		return nil, err
	}
	return s.addresses.Update(ctx, addressID, patch)
}

// SetDefault makes the address the user's single default.
func (s *addressService) SetDefault(ctx context.Context, userID, addressID uuid.UUID) error {
	return s.addresses.SetDefault(ctx, userID, addressID)
}

// Delete removes an owned address. Orders that shipped to it keep their row
// and lose only the reference.
func (s *addressService) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if _, err := s.Get(ctx, userID, addressID); err != nil {
		return err
	}
	return s.addresses.Delete(ctx, addressID)
}
