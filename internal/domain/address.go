package domain

import (
	"time"

	"github.com/google/uuid"
)

// Address represents a shipping address owned by a user. Deleting the user
// deletes its addresses; at most one address per user may be the default.
type Address struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Label      string    `json:"label" db:"label"`
	Street     string    `json:"street" db:"street"`
	City       string    `json:"city" db:"city"`
	State      string    `json:"state" db:"state"`
	PostalCode string    `json:"postal_code" db:"postal_code"`
	Country    string    `json:"country" db:"country"`
	IsDefault  bool      `json:"is_default" db:"is_default"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the field-level invariants and returns every violation found.
func (a *Address) Validate() []ConstraintViolation {
	var violations []ConstraintViolation

	for _, f := range []struct {
		name  string
		value string
	}{
		{"label", a.Label},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
	} {
		if f.value == "" {
			violations = append(violations, required(f.name))
		}
	}

	if !countryPattern.MatchString(a.Country) {
		violations = append(violations, ConstraintViolation{
			Field:   "country",
			Code:    CodeCountryInvalid,
			Message: "country must be a two-letter uppercase ISO code",
		})
	}

	return violations
}

// ValidateDefaultAddresses checks the single-default rule across a user's
// address set and reports a violation for each extra default beyond the first.
func ValidateDefaultAddresses(addresses []Address) []ConstraintViolation {
	var violations []ConstraintViolation

	defaults := 0
	for _, a := range addresses {
		if !a.IsDefault {
			continue
		}
		defaults++
		if defaults > 1 {
			violations = append(violations, ConstraintViolation{
				Field:   "is_default",
				Code:    CodeDefaultAddressConflict,
				Message: "user already has a default address",
			})
		}
	}

	return violations
}
