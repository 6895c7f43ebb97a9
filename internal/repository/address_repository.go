package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

// AddressPatch carries the fields an update may change. Nil fields are left
// untouched.
type AddressPatch struct {
	Label      *string
	Street     *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string
	IsDefault  *bool
}

// AddressRepository defines the interface for address data access. An address
// always belongs to one user; promoting an address to default atomically
// demotes the user's previous default.
type AddressRepository interface {
	Create(ctx context.Context, address *domain.Address) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
	Update(ctx context.Context, id uuid.UUID, patch AddressPatch) (*domain.Address, error)
	SetDefault(ctx context.Context, userID, addressID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type addressRepository struct {
	db *sql.DB
}

// NewAddressRepository creates a new instance of AddressRepository backed by postgres.
func NewAddressRepository(db *sql.DB) AddressRepository {
	return &addressRepository{db: db}
}

const addressColumns = `id, user_id, label, street, city, state, postal_code, country, is_default, created_at, updated_at`

func scanAddress(row interface{ Scan(...any) error }) (*domain.Address, error) {
	address := &domain.Address{}
	err := row.Scan(
		&address.ID,
		&address.UserID,
		&address.Label,
		&address.Street,
		&address.City,
		&address.State,
		&address.PostalCode,
		&address.Country,
		&address.IsDefault,
		&address.CreatedAt,
		&address.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return address, nil
}

// unsetDefault demotes the user's current default address inside tx.
func unsetDefault(ctx context.Context, tx *sql.Tx, userID uuid.UUID, now time.Time) error {
	query := `
		UPDATE addresses
		SET is_default = false, updated_at = $2
		WHERE user_id = $1 AND is_default
	`
	if _, err := tx.ExecContext(ctx, query, userID, now); err != nil {
		return fmt.Errorf("failed to unset default address: %w", err)
	}
	return nil
}

// Create validates the address and inserts it. Inserting a default address
// demotes the user's previous default in the same transaction, so the partial
// unique index never fires under normal operation.
func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	if err := domain.NewValidationError(address.Validate()); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if address.IsDefault {
		if err := unsetDefault(ctx, tx, address.UserID, address.UpdatedAt); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO addresses (id, user_id, label, street, city, state, postal_code, country, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		address.ID,
		address.UserID,
		address.Label,
		address.Street,
		address.City,
		address.State,
		address.PostalCode,
		address.Country,
		address.IsDefault,
		address.CreatedAt,
		address.UpdatedAt,
	)

	if err != nil {
		if translated := translateConstraint(err); translated != nil {
			return translated
		}
		if constraint, ok := foreignKeyConstraint(err); ok && constraint == "fk_addresses_user" {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create address: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByID retrieves an address by ID.
func (r *addressRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM addresses
		WHERE id = $1
	`, addressColumns)

	address, err := scanAddress(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to find address by ID: %w", err)
	}

	return address, nil
}

// ListByUser retrieves every address owned by the user, default first, then
// newest first. Address sets are small enough that they are not paginated.
func (r *addressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC, id
	`, addressColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*domain.Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, address)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}

// Update loads the address, applies the patch, revalidates the result and
// writes it back. Promoting to default demotes the previous default in the
// same transaction.
func (r *addressRepository) Update(ctx context.Context, id uuid.UUID, patch AddressPatch) (*domain.Address, error) {
	address, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Label != nil {
		address.Label = *patch.Label
	}
	if patch.Street != nil {
		address.Street = *patch.Street
	}
	if patch.City != nil {
		address.City = *patch.City
	}
	if patch.State != nil {
		address.State = *patch.State
	}
	if patch.PostalCode != nil {
		address.PostalCode = *patch.PostalCode
	}
	if patch.Country != nil {
		address.Country = *patch.Country
	}
	promote := false
	if patch.IsDefault != nil {
		promote = *patch.IsDefault && !address.IsDefault
		address.IsDefault = *patch.IsDefault
	}
	address.UpdatedAt = time.Now().UTC()

	if err := domain.NewValidationError(address.Validate()); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if promote {
		if err := unsetDefault(ctx, tx, address.UserID, address.UpdatedAt); err != nil {
			return nil, err
		}
	}

	query := `
		UPDATE addresses
		SET label = $2, street = $3, city = $4, state = $5,
		    postal_code = $6, country = $7, is_default = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		address.ID,
		address.Label,
		address.Street,
		address.City,
		address.State,
		address.PostalCode,
		address.Country,
		address.IsDefault,
		address.UpdatedAt,
	)

	if err != nil {
		if translated := translateConstraint(err); translated != nil {
			return nil, translated
		}
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrAddressNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return address, nil
}

// SetDefault promotes the given address to the user's default, demoting any
// previous default in the same transaction.
func (r *addressRepository) SetDefault(ctx context.Context, userID, addressID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := unsetDefault(ctx, tx, userID, now); err != nil {
		return err
	}

	query := `
		UPDATE addresses
		SET is_default = true, updated_at = $3
		WHERE id = $1 AND user_id = $2
	`

	result, err := tx.ExecContext(ctx, query, addressID, userID, now)
	if err != nil {
		if translated := translateConstraint(err); translated != nil {
			return translated
		}
		return fmt.Errorf("failed to set default address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAddressNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes the address. Orders shipping to it keep their rows; the
// foreign key clears their shipping_address_id.
func (r *addressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM addresses WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAddressNotFound
	}

	return nil
}
