package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Violation codes are stable machine-readable identifiers, independent of any
// transport status code.
const (
	CodeFieldRequired          = "FIELD_REQUIRED"
	CodeEmailInvalid           = "EMAIL_INVALID"
	CodeNameLength             = "NAME_LENGTH"
	CodePasswordLength         = "PASSWORD_LENGTH"
	CodeSlugInvalid            = "SLUG_INVALID"
	CodePriceNegative          = "PRICE_NEGATIVE"
	CodeStockNegative          = "STOCK_NEGATIVE"
	CodeCountryInvalid         = "COUNTRY_CODE_INVALID"
	CodeDefaultAddressConflict = "DEFAULT_ADDRESS_CONFLICT"
	CodeInvalidStatus          = "INVALID_STATUS"
	CodeQuantityNotPositive    = "QUANTITY_NOT_POSITIVE"
	CodeUnitPriceNegative      = "UNIT_PRICE_NEGATIVE"
	CodeDiscountNegative       = "DISCOUNT_NEGATIVE"
	CodeAmountNegative         = "AMOUNT_NEGATIVE"
	CodeTotalNegative          = "TOTAL_NEGATIVE"
	CodeDuplicateOrderProduct  = "DUPLICATE_ORDER_PRODUCT"
)

// Field length limits shared with the database schema.
const (
	MaxNameLength        = 100
	MaxProductNameLength = 200
	MaxSlugLength        = 220
)

var (
	emailPattern   = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	slugPattern    = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

// ConstraintViolation describes one broken invariant, tagged with the
// offending field and a stable code.
type ConstraintViolation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v ConstraintViolation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Code)
}

func required(field string) ConstraintViolation {
	return ConstraintViolation{
		Field:   field,
		Code:    CodeFieldRequired,
		Message: field + " is required",
	}
}

// ValidationError carries the full violation list for an entity that failed
// validation. Repositories return it before any write is attempted.
type ValidationError struct {
	Violations []ConstraintViolation
}

func (e *ValidationError) Error() string {
	codes := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		codes[i] = v.String()
	}
	return "validation failed: " + strings.Join(codes, ", ")
}

// NewValidationError wraps a non-empty violation list; it returns nil for an
// empty one so callers can write `if err := ...; err != nil`.
func NewValidationError(violations []ConstraintViolation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// NormalizeEmail lowercases an address for case-insensitive comparison and
// storage lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
