package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog item. Products are referenced by order items
// but never owned by them: a referenced product cannot be deleted.
type Product struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Slug          string    `json:"slug" db:"slug"`
	Description   string    `json:"description,omitempty" db:"description"`
	Price         float64   `json:"price" db:"price"`
	StockQuantity int       `json:"stock_quantity" db:"stock_quantity"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the field-level invariants and returns every violation found.
func (p *Product) Validate() []ConstraintViolation {
	var violations []ConstraintViolation

	if l := len(p.Name); l < 1 || l > MaxProductNameLength {
		violations = append(violations, ConstraintViolation{
			Field:   "name",
			Code:    CodeNameLength,
			Message: "name must be between 1 and 200 characters",
		})
	}

	if len(p.Slug) > MaxSlugLength || !slugPattern.MatchString(p.Slug) {
		violations = append(violations, ConstraintViolation{
			Field:   "slug",
			Code:    CodeSlugInvalid,
			Message: "slug must be lowercase words separated by single hyphens",
		})
	}

	if p.Price < 0 {
		violations = append(violations, ConstraintViolation{
			Field:   "price",
			Code:    CodePriceNegative,
			Message: "price must not be negative",
		})
	}

	if p.StockQuantity < 0 {
		violations = append(violations, ConstraintViolation{
			Field:   "stock_quantity",
			Code:    CodeStockNegative,
			Message: "stock quantity must not be negative",
		})
	}

	return violations
}
