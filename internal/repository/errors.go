package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrAddressNotFound = errors.New("address not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")

	ErrEmailTaken            = errors.New("user with this email already exists")
	ErrSlugTaken             = errors.New("product with this slug already exists")
	ErrDefaultAddressTaken   = errors.New("user already has a default address")
	ErrDuplicateOrderProduct = errors.New("order already contains this product")
	ErrForeignKeyRestricted  = errors.New("record is referenced by other records")
)

// Postgres condition classes for integrity failures (SQLSTATE class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// uniqueSentinels maps unique constraint names from the migrations onto the
// sentinel a caller is expected to branch on.
var uniqueSentinels = map[string]error{
	"uq_users_email":               ErrEmailTaken,
	"uq_products_slug":             ErrSlugTaken,
	"uq_addresses_user_default":    ErrDefaultAddressTaken,
	"uq_order_items_order_product": ErrDuplicateOrderProduct,
}

// checkViolations maps CHECK constraint names onto the field and code the
// equivalent in-process validation would have reported. Rows normally never
// reach these constraints because repositories validate before writing, but a
// concurrent writer or manual migration can still trip them.
var checkViolations = map[string]domain.ConstraintViolation{
	"ck_addresses_country":    {Field: "country", Code: domain.CodeCountryInvalid, Message: "country must be a two-letter ISO code"},
	"ck_products_price":       {Field: "price", Code: domain.CodePriceNegative, Message: "price must not be negative"},
	"ck_products_stock":       {Field: "stock_quantity", Code: domain.CodeStockNegative, Message: "stock quantity must not be negative"},
	"ck_orders_status":        {Field: "status", Code: domain.CodeInvalidStatus, Message: "status is not a known order status"},
	"ck_orders_total":         {Field: "total", Code: domain.CodeTotalNegative, Message: "total must not be negative"},
	"ck_order_items_quantity": {Field: "quantity", Code: domain.CodeQuantityNotPositive, Message: "quantity must be positive"},
	"ck_order_items_price":    {Field: "unit_price", Code: domain.CodeUnitPriceNegative, Message: "unit price must not be negative"},
	"ck_order_items_discount": {Field: "discount", Code: domain.CodeDiscountNegative, Message: "discount must not be negative"},
}

// translateConstraint maps unique and check constraint failures onto domain
// errors so callers never branch on raw driver state. Foreign key failures
// are mapped at the call site, where the direction of the violation (missing
// parent on write versus restricted parent on delete) is known.
func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if sentinel, ok := uniqueSentinels[pgErr.ConstraintName]; ok {
			return sentinel
		}
	case pgCheckViolation:
		if v, ok := checkViolations[pgErr.ConstraintName]; ok {
			return &domain.ValidationError{Violations: []domain.ConstraintViolation{v}}
		}
		return fmt.Errorf("check constraint %s violated: %w", pgErr.ConstraintName, err)
	}
	return nil
}

// foreignKeyConstraint returns the name of the violated foreign key when err
// is a referential integrity failure.
func foreignKeyConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
