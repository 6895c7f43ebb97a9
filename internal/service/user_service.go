package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// ErrMalformedField marks a patch value that does not decode into the field's
// type. Callers wrap it with the offending field name.
var ErrMalformedField = errors.New("malformed field value")

// userUpdatableFields is the allow-list for partial user updates. A patch
// naming any other field is rejected as a whole.
var userUpdatableFields = map[string]bool{
	"email": true,
	"name":  true,
}

// DisallowedFieldsError rejects a patch that names fields outside the
// allow-list. Fields holds every offender, sorted.
type DisallowedFieldsError struct {
	Fields []string
}

func (e *DisallowedFieldsError) Error() string {
	return "fields not updatable: " + strings.Join(e.Fields, ", ")
}

// CreateUserInput carries the raw registration payload. The password is
// accepted here once, hashed, and never stored or returned in clear.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
}

// UserService defines the interface for account business logic
type UserService interface {
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, page repository.Page, filter repository.UserFilter) ([]*domain.User, int, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]json.RawMessage) (*domain.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	users  repository.UserRepository
	hasher PasswordHasher
}

// NewUserService creates a new instance of UserService
func NewUserService(users repository.UserRepository, hasher PasswordHasher) UserService {
	return &userService{
		users:  users,
		hasher: hasher,
	}
}

// Create registers a new account. Every invariant violation in the input is
// reported in one pass; the duplicate-email fast path is advisory only, the
// storage unique constraint is the source of truth under concurrent creates.
func (s *userService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        domain.NormalizeEmail(input.Email),
		Name:         input.Name,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	violations := user.Validate()
	if len(input.Password) < MinPasswordLength {
		violations = append(violations, domain.ConstraintViolation{
			Field:   "password",
			Code:    domain.CodePasswordLength,
			Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength),
		})
	}
	if err := domain.NewValidationError(violations); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, user.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrEmailTaken
	}

	// Two callers can both pass the check above; the unique index decides
	// the race and Create comes back with ErrEmailTaken for the loser.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Get retrieves a user by ID
func (s *userService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// List returns one page of users plus the total row count for the filter.
func (s *userService) List(ctx context.Context, page repository.Page, filter repository.UserFilter) ([]*domain.User, int, error) {
	return s.users.List(ctx, page, filter)
}

// Update applies a partial update. Any field outside the allow-list fails the
// whole patch with a DisallowedFieldsError naming every offender; nothing is
// modified in that case. An empty patch is a no-op read.
func (s *userService) Update(ctx context.Context, id uuid.UUID, fields map[string]json.RawMessage) (*domain.User, error) {
	var rejected []string
	for name := range fields {
		if !userUpdatableFields[name] {
			rejected = append(rejected, name)
		}
	}
	if len(rejected) > 0 {
		sort.Strings(rejected)
		return nil, &DisallowedFieldsError{Fields: rejected}
	}
	if len(fields) == 0 {
		return s.users.FindByID(ctx, id)
	}

	var patch repository.UserPatch
	if raw, ok := fields["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, fmt.Errorf("field %q: %w", "name", ErrMalformedField)
		}
		patch.Name = &name
	}
	if raw, ok := fields["email"]; ok {
		var email string
		if err := json.Unmarshal(raw, &email); err != nil {
			return nil, fmt.Errorf("field %q: %w", "email", ErrMalformedField)
		}
		patch.Email = &email
	}

	return s.users.Update(ctx, id, patch)
}

// Deactivate soft-deletes the account: it vanishes from lookups but keeps its
// row, and its email stays reserved.
func (s *userService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.users.SoftDelete(ctx, id)
}

// Delete removes the account row entirely. It fails with
// ErrForeignKeyRestricted while orders still reference the user.
func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}
