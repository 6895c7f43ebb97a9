package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a customer account. The password is only ever held as an
// opaque hash; DeletedAt marks soft-deleted accounts that keep their row.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Deleted reports whether the account has been soft-deleted.
func (u *User) Deleted() bool {
	return u.DeletedAt != nil
}

// Validate checks the field-level invariants and returns every violation found.
func (u *User) Validate() []ConstraintViolation {
	var violations []ConstraintViolation

	if u.Email == "" {
		violations = append(violations, required("email"))
	} else if !emailPattern.MatchString(u.Email) {
		violations = append(violations, ConstraintViolation{
			Field:   "email",
			Code:    CodeEmailInvalid,
			Message: "email is not a valid address",
		})
	}

	if l := len(u.Name); l < 1 || l > MaxNameLength {
		violations = append(violations, ConstraintViolation{
			Field:   "name",
			Code:    CodeNameLength,
			Message: "name must be between 1 and 100 characters",
		})
	}

	if u.PasswordHash == "" {
		violations = append(violations, required("password_hash"))
	}

	return violations
}
