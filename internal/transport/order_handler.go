package transport

import (
	"errors"
	"net/http"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderItemRequest is one requested order line. Unit prices are never part of
// the payload; they are captured from the catalog at placement time.
type OrderItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Quantity  int     `json:"quantity"`
	Discount  float64 `json:"discount"`
}

// CreateOrderRequest represents the order placement payload
type CreateOrderRequest struct {
	UserID            string             `json:"user_id" validate:"required,uuid"`
	ShippingAddressID *string            `json:"shipping_address_id" validate:"omitempty,uuid"`
	Notes             string             `json:"notes"`
	Tax               float64            `json:"tax"`
	Shipping          float64            `json:"shipping"`
	Items             []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderStatusRequest carries the requested lifecycle move
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderItemResponse represents one order line returned to clients
type OrderItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Discount  float64 `json:"discount"`
	LineTotal float64 `json:"line_total"`
}

// OrderResponse represents order data returned to clients
type OrderResponse struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	ShippingAddressID *string             `json:"shipping_address_id,omitempty"`
	Status            string              `json:"status"`
	Subtotal          float64             `json:"subtotal"`
	Tax               float64             `json:"tax"`
	Shipping          float64             `json:"shipping"`
	Total             float64             `json:"total"`
	Notes             string              `json:"notes,omitempty"`
	Items             []OrderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func newOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		items = append(items, OrderItemResponse{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
			LineTotal: item.LineTotal(),
		})
	}

	resp := OrderResponse{
		ID:        order.ID.String(),
		UserID:    order.UserID.String(),
		Status:    string(order.Status),
		Subtotal:  order.Subtotal,
		Tax:       order.Tax,
		Shipping:  order.Shipping,
		Total:     order.Total,
		Notes:     order.Notes,
		Items:     items,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	if order.ShippingAddressID != nil {
		id := order.ShippingAddressID.String()
		resp.ShippingAddressID = &id
	}
	return resp
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/status", h.UpdateStatus)
			r.Post("/cancel", h.Cancel)
		})
	})
}

// Create handles order placement
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Order create validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidBody, "invalid request body")
		return
	}

	input := service.PlaceOrderInput{
		Notes:    req.Notes,
		Tax:      req.Tax,
		Shipping: req.Shipping,
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		middleware.RespondWithFieldError(w, http.StatusBadRequest, middleware.CodeInvalidID, "invalid user_id", "user_id")
		return
	}
	input.UserID = userID

	if req.ShippingAddressID != nil {
		addressID, err := uuid.Parse(*req.ShippingAddressID)
		if err != nil {
			middleware.RespondWithFieldError(w, http.StatusBadRequest, middleware.CodeInvalidID, "invalid shipping_address_id", "shipping_address_id")
			return
		}
		input.ShippingAddressID = &addressID
	}

	for _, line := range req.Items {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			middleware.RespondWithFieldError(w, http.StatusBadRequest, middleware.CodeInvalidID, "invalid product_id", "product_id")
			return
		}
		input.Items = append(input.Items, service.OrderItemInput{
			ProductID: productID,
			Quantity:  line.Quantity,
			Discount:  line.Discount,
		})
	}

	order, err := h.orderService.Place(r.Context(), input)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, CodeUserNotFound, "user not found")
		case errors.Is(err, repository.ErrAddressNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, CodeAddressNotFound, "shipping address not found")
		case errors.Is(err, repository.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, CodeProductNotFound, err.Error())
		case errors.As(err, &verr):
			h.logger.Debug("Order create failed validation", zap.Error(err))
			respondDomainValidation(w, verr)
		default:
			h.logger.Error("Order create failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to place order")
		}
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID.String()),
		zap.Float64("total", order.Total),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, newOrderResponse(order))
}

// List handles the order history listing for one user, newest first
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	rawUserID := r.URL.Query().Get("user_id")
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		middleware.RespondWithFieldError(w, http.StatusBadRequest, middleware.CodeInvalidID, "invalid user_id", "user_id")
		return
	}
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}

	orders, total, err := h.orderService.ListByUser(r.Context(), userID, page)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeUserNotFound, "user not found")
			return
		}
		h.logger.Error("Order list failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to list orders")
		return
	}

	data := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		data = append(data, newOrderResponse(order))
	}
	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{Data: data, Meta: newListMeta(page, total)})
}

// Get handles fetching an order with its items
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeOrderNotFound, "order not found")
			return
		}
		h.logger.Error("Order fetch failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to fetch order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

// UpdateStatus handles moving an order along its lifecycle
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Order status validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidBody, "invalid request body")
		return
	}

	next := domain.OrderStatus(req.Status)
	if !next.Valid() {
		respondDomainValidation(w, &domain.ValidationError{Violations: []domain.ConstraintViolation{{
			Field:   "status",
			Code:    domain.CodeInvalidStatus,
			Message: "status " + req.Status + " is not a valid order status",
		}}})
		return
	}

	order, err := h.orderService.TransitionStatus(r.Context(), id, next)
	if err != nil {
		h.respondTransitionError(w, err, "failed to update order status")
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

// Cancel handles order cancellation, allowed from any non-terminal status
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.Cancel(r.Context(), id)
	if err != nil {
		h.respondTransitionError(w, err, "failed to cancel order")
		return
	}

	h.logger.Info("Order cancelled", zap.String("order_id", order.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, newOrderResponse(order))
}

// Delete handles removing an order together with its items
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	if err := h.orderService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeOrderNotFound, "order not found")
			return
		}
		h.logger.Error("Order delete failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to delete order")
		return
	}

	h.logger.Info("Order deleted", zap.String("order_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) respondTransitionError(w http.ResponseWriter, err error, fallback string) {
	var terr *domain.InvalidTransitionError
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, CodeOrderNotFound, "order not found")
	case errors.As(err, &terr):
		middleware.RespondWithError(w, http.StatusConflict, CodeInvalidTransition, terr.Error())
	default:
		h.logger.Error("Order transition failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, fallback)
	}
}
