package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateUserRequest represents the account creation payload
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserResponse represents account data returned to clients. The password
// hash never crosses this boundary.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// UserHandler handles HTTP requests for account operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes. The address book is nested under
// its owner, so its route block is injected here.
func (h *UserHandler) RegisterRoutes(r chi.Router, addressRoutes func(chi.Router)) {
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/deactivate", h.Deactivate)
			r.Route("/addresses", addressRoutes)
		})
	})
}

// Create handles account creation
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("User create validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidBody, "invalid request body")
		return
	}

	user, err := h.userService.Create(r.Context(), service.CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			h.logger.Debug("User create conflicts on email")
			middleware.RespondWithFieldError(w, http.StatusConflict, CodeEmailExists, "email is already registered", "email")
		case errors.As(err, &verr):
			h.logger.Debug("User create failed validation", zap.Error(err))
			respondDomainValidation(w, verr)
		default:
			h.logger.Error("User create failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to create user")
		}
		return
	}

	h.logger.Info("User created", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, newUserResponse(user))
}

// List handles the paginated account listing
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}
	isActive, ok := boolFilter(w, r, "is_active")
	if !ok {
		return
	}

	users, total, err := h.userService.List(r.Context(), page, repository.UserFilter{IsActive: isActive})
	if err != nil {
		h.logger.Error("User list failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to list users")
		return
	}

	data := make([]UserResponse, 0, len(users))
	for _, user := range users {
		data = append(data, newUserResponse(user))
	}
	middleware.RespondWithJSON(w, http.StatusOK, ListResponse{Data: data, Meta: newListMeta(page, total)})
}

// Get handles fetching a single account
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeUserNotFound, "user not found")
			return
		}
		h.logger.Error("User fetch failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to fetch user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newUserResponse(user))
}

// Update handles partial account updates. Only name and email are
// updatable; a patch naming anything else is rejected as a whole.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.logger.Debug("User patch decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidBody, "invalid request body")
		return
	}

	user, err := h.userService.Update(r.Context(), id, fields)
	if err != nil {
		h.logger.Debug("User patch rejected", zap.Error(err))

		var dferr *service.DisallowedFieldsError
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &dferr):
			middleware.RespondWithErrorDetail(w, http.StatusBadRequest, middleware.ErrorDetail{
				Code:    CodeInvalidFields,
				Message: "fields cannot be updated: " + strings.Join(dferr.Fields, ", "),
				Details: dferr.Fields,
			})
		case errors.Is(err, service.ErrMalformedField):
			middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidBody, err.Error())
		case errors.Is(err, repository.ErrUserNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, CodeUserNotFound, "user not found")
		case errors.Is(err, repository.ErrEmailTaken):
			middleware.RespondWithFieldError(w, http.StatusConflict, CodeEmailExists, "email is already registered", "email")
		case errors.As(err, &verr):
			respondDomainValidation(w, verr)
		default:
			h.logger.Error("User patch failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to update user")
		}
		return
	}

	h.logger.Info("User updated", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, newUserResponse(user))
}

// Deactivate handles the soft delete: the account vanishes from lookups but
// keeps its row and its email stays reserved.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.userService.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, CodeUserNotFound, "user not found")
			return
		}
		h.logger.Error("User deactivation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to deactivate user")
		return
	}

	h.logger.Info("User deactivated", zap.String("user_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles the hard delete. Deleting an already-deleted account is an
// error, not a no-op.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, CodeUserNotFound, "user not found")
		case errors.Is(err, repository.ErrForeignKeyRestricted):
			middleware.RespondWithError(w, http.StatusConflict, CodeUserHasOrders, "user still has orders")
		default:
			h.logger.Error("User delete failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, middleware.CodeInternalError, "failed to delete user")
		}
		return
	}

	h.logger.Info("User deleted", zap.String("user_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
