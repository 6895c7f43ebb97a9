package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// OrderItemInput is one requested line: which product, how many, and an
// optional discount off the line total.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Discount  float64
}

// PlaceOrderInput carries everything needed to place an order. Unit prices
// are not part of the input; they are captured from the catalog at placement
// time so later price changes never rewrite existing orders.
type PlaceOrderInput struct {
	UserID            uuid.UUID
	ShippingAddressID *uuid.UUID
	Notes             string
	Tax               float64
	Shipping          float64
	Items             []OrderItemInput
}

// OrderService defines the interface for order business logic
type OrderService interface {
	Place(ctx context.Context, input PlaceOrderInput) (*domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page repository.Page) ([]*domain.Order, int, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type orderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	addresses repository.AddressRepository
	users     repository.UserRepository
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	addresses repository.AddressRepository,
	users repository.UserRepository,
) OrderService {
	return &orderService{
		orders:    orders,
		products:  products,
		addresses: addresses,
		users:     users,
	}
}

// Place creates a pending order. Each line's unit price is snapshotted from
// the product at placement time, totals are derived from the lines, and the
// whole graph is written atomically; no partial order survives a failure.
func (s *orderService) Place(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	now := time.Now().UTC()
	order := &domain.Order{
		ID:                uuid.New(),
		UserID:            input.UserID,
		ShippingAddressID: input.ShippingAddressID,
		Status:            domain.StatusPending,
		Tax:               input.Tax,
		Shipping:          input.Shipping,
		Notes:             input.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, err)
		}
		items = append(items, domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			Discount:  line.Discount,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	order.Items = items
	order.Recalculate()

	violations := order.Validate()
	if len(order.Items) == 0 {
		violations = append(violations, domain.ConstraintViolation{
			Field:   "items",
			Code:    domain.CodeFieldRequired,
			Message: "order must contain at least one item",
		})
	}
	if err := domain.NewValidationError(violations); err != nil {
		return nil, err
	}

	// The shipping address must belong to the ordering user; a foreign
	// key cannot express that, so it is checked here.
	if input.ShippingAddressID != nil {
		address, err := s.addresses.FindByID(ctx, *input.ShippingAddressID)
		if err != nil {
			return nil, err
		}
		if address.UserID != input.UserID {
			return nil, repository.ErrAddressNotFound
		}
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Get retrieves an order with its items.
func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// ListByUser returns one page of the user's orders, newest first. Listing for
// a missing user reports ErrUserNotFound rather than an empty page.
func (s *orderService) ListByUser(ctx context.Context, userID uuid.UUID, page repository.Page) ([]*domain.Order, int, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.orders.ListByUser(ctx, userID, page)
}

// TransitionStatus advances the order along its lifecycle. Disallowed moves
// come back as *domain.InvalidTransitionError and change nothing.
func (s *orderService) TransitionStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	return s.orders.UpdateStatus(ctx, id, next)
}

// Cancel moves the order to cancelled, allowed from any non-terminal status.
func (s *orderService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.UpdateStatus(ctx, id, domain.StatusCancelled)
}

// Delete removes the order and cascades its items.
func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.orders.Delete(ctx, id)
}
