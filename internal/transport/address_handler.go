package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddressRequest represents the address creation payload
type AddressRequest struct {
	Label      string `json:"label" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
	IsDefault  bool   `json:"is_default"`
}

// UpdateAddressRequest represents a partial address update; absent fields
// keep their value.
type UpdateAddressRequest struct {
	Label      *string `json:"label"`
	Street     *string `json:"street"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
	IsDefault  *bool   `json:"is_default"`
}

// AddressResponse represents address data returned to clients
type AddressResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Label      string    `json:"label"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newAddressResponse(address *domain.Address) AddressResponse {
	return AddressResponse{
		ID:         address.ID.String(),
		UserID:     address.UserID.String(),
		Label:      address.Label,
		Street:     address.Street,
		City:       address.City,
		State:      address.State,
		PostalCode: address.PostalCode,
		Country:    address.Country,
		IsDefault:  address.IsDefault,
		CreatedAt:  address.CreatedAt,
		UpdatedAt:  address.UpdatedAt,
	}
}

// AddressHandler handles HTTP requests for a user's address book
type AddressHandler struct {
	addressService service.AddressService
	logger         *zap.Logger
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(addressService service.AddressService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
		logger:         logger,
	}
}

// Routes registers the address book routes on a router already scoped to
// /users/{userID}/addresses.
func (h *AddressHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)

	r.Route("/{addressID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/default", h.SetDefault)
	})
}

// Create handles adding an address to the user's book
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var req AddressRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Address create validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidBody, "invalid request body")
		return
	}

	address, err := h.addressService.Create(r.Context(), userID, service.AddressInput{
		Label:      req.Label,
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, CodeUserNotFound, "user not found")
		case errors.As(err, &verr):
			h.logger.Debug("Address create failed validation", zap.Error(err))
			respondDomainValidation(w, verr)
		default:
			h.logger.Error("Address create failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to create address")
		}
		return
	}

	h.logger.Info("Address created",
		zap.String("user_id", userID.String()),
		zap.String("address_id", address.ID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, newAddressResponse(address))
}

// List handles fetching the user's address book, default first
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	addresses, err := h.addressService.ListByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeUserNotFound, "user not found")
			return
		}
		h.logger.Error("Address list failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to list addresses")
		return
	}

	data := make([]AddressResponse, 0, len(addresses))
	for _, address := range addresses {
		data = append(data, newAddressResponse(address))
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

// Get handles fetching one address from the user's book
func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	addressID, ok := pathID(w, r, "addressID")
	if !ok {
		return
	}

	address, err := h.addressService.Get(r.Context(), userID, addressID)
	if err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeAddressNotFound, "address not found")
			return
		}
		h.logger.Error("Address fetch failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to fetch address")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newAddressResponse(address))
}

// Update handles partial address updates
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	addressID, ok := pathID(w, r, "addressID")
	if !ok {
		return
	}

	var req UpdateAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Address patch decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidBody, "invalid request body")
		return
	}

	address, err := h.addressService.Update(r.Context(), userID, addressID, repository.AddressPatch{
		Label:      req.Label,
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, repository.ErrAddressNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, CodeAddressNotFound, "address not found")
		case errors.As(err, &verr):
			h.logger.Debug("Address patch failed validation", zap.Error(err))
			respondDomainValidation(w, verr)
		default:
			h.logger.Error("Address patch failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to update address")
		}
		return
	}

	h.logger.Info("Address updated", zap.String("address_id", addressID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, newAddressResponse(address))
}

// SetDefault handles promoting an address to the user's single default
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	addressID, ok := pathID(w, r, "addressID")
	if !ok {
		return
	}

	if err := h.addressService.SetDefault(r.Context(), userID, addressID); err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeAddressNotFound, "address not found")
			return
		}
		h.logger.Error("Address promotion failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to set default address")
		return
	}

	h.logger.Info("Address set as default",
		zap.String("user_id", userID.String()),
		zap.String("address_id", addressID.String()),
	)
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles removing an address from the user's book
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	addressID, ok := pathID(w, r, "addressID")
	if !ok {
		return
	}

	if err := h.addressService.Delete(r.Context(), userID, addressID); err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeAddressNotFound, "address not found")
			return
		}
		h.logger.Error("Address delete failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to delete address")
		return
	}

	h.logger.Info("Address deleted", zap.String("address_id", addressID.String()))
	w.WriteHeader(http.StatusNoContent)
}
