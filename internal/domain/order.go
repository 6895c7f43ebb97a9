package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the closed set of states an order can be in.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// nextStatus is the forward transition table. Cancellation is handled
// separately: it is reachable from every non-terminal state.
var nextStatus = map[OrderStatus]OrderStatus{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// Valid reports whether s is a member of the status enumeration.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s accepts no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order in status s may move to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return nextStatus[s] == next
}

// InvalidTransitionError reports a status change the transition table forbids.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition from %q to %q", e.From, e.To)
}

// Order represents a placed order. It owns its items (deleted with the order)
// and optionally references one of the user's addresses as the shipping
// destination; that reference is cleared if the address goes away.
type Order struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	UserID            uuid.UUID   `json:"user_id" db:"user_id"`
	ShippingAddressID *uuid.UUID  `json:"shipping_address_id,omitempty" db:"shipping_address_id"`
	Status            OrderStatus `json:"status" db:"status"`
	Subtotal          float64     `json:"subtotal" db:"subtotal"`
	Tax               float64     `json:"tax" db:"tax"`
	Shipping          float64     `json:"shipping" db:"shipping"`
	Total             float64     `json:"total" db:"total"`
	Notes             string      `json:"notes,omitempty" db:"notes"`
	Items             []OrderItem `json:"items,omitempty"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderItem is one product line on an order, unique per (order, product).
type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
	Discount  float64   `json:"discount" db:"discount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LineTotal is the item's contribution to the order subtotal.
func (i *OrderItem) LineTotal() float64 {
	return float64(i.Quantity)*i.UnitPrice - i.Discount
}

// Validate checks the item's field-level invariants.
func (i *OrderItem) Validate() []ConstraintViolation {
	var violations []ConstraintViolation

	if i.ProductID == uuid.Nil {
		violations = append(violations, required("product_id"))
	}

	if i.Quantity <= 0 {
		violations = append(violations, ConstraintViolation{
			Field:   "quantity",
			Code:    CodeQuantityNotPositive,
			Message: "quantity must be greater than zero",
		})
	}

	if i.UnitPrice < 0 {
		violations = append(violations, ConstraintViolation{
			Field:   "unit_price",
			Code:    CodeUnitPriceNegative,
			Message: "unit price must not be negative",
		})
	}

	if i.Discount < 0 {
		violations = append(violations, ConstraintViolation{
			Field:   "discount",
			Code:    CodeDiscountNegative,
			Message: "discount must not be negative",
		})
	}

	return violations
}

// Recalculate rederives the subtotal and total from the order's items and fee
// fields, keeping the monetary columns consistent.
func (o *Order) Recalculate() {
	subtotal := 0.0
	for i := range o.Items {
		subtotal += o.Items[i].LineTotal()
	}
	o.Subtotal = subtotal
	o.Total = subtotal + o.Tax + o.Shipping
}

// Validate checks the order and its items, returning every violation found.
// Item violations are prefixed with the item index to keep fields unambiguous.
func (o *Order) Validate() []ConstraintViolation {
	var violations []ConstraintViolation

	if o.UserID == uuid.Nil {
		violations = append(violations, required("user_id"))
	}

	if !o.Status.Valid() {
		violations = append(violations, ConstraintViolation{
			Field:   "status",
			Code:    CodeInvalidStatus,
			Message: fmt.Sprintf("status %q is not a valid order status", o.Status),
		})
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"subtotal", o.Subtotal},
		{"tax", o.Tax},
		{"shipping", o.Shipping},
	} {
		if f.value < 0 {
			violations = append(violations, ConstraintViolation{
				Field:   f.name,
				Code:    CodeAmountNegative,
				Message: f.name + " must not be negative",
			})
		}
	}

	if o.Total < 0 {
		violations = append(violations, ConstraintViolation{
			Field:   "total",
			Code:    CodeTotalNegative,
			Message: "total must not be negative",
		})
	}

	seen := make(map[uuid.UUID]bool, len(o.Items))
	for idx := range o.Items {
		item := &o.Items[idx]
		for _, v := range item.Validate() {
			v.Field = fmt.Sprintf("items[%d].%s", idx, v.Field)
			violations = append(violations, v)
		}
		if item.ProductID != uuid.Nil && seen[item.ProductID] {
			violations = append(violations, ConstraintViolation{
				Field:   fmt.Sprintf("items[%d].product_id", idx),
				Code:    CodeDuplicateOrderProduct,
				Message: "product appears more than once on the order",
			})
		}
		seen[item.ProductID] = true
	}

	return violations
}

// TransitionStatus moves the order to next if the transition table allows it:
// one step forward along the lifecycle, or to cancelled from any non-terminal
// state. Terminal orders accept nothing.
func (o *Order) TransitionStatus(next OrderStatus) error {
	if !o.Status.CanTransition(next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}
	o.Status = next
	return nil
}
