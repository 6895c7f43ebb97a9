package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Error codes tied to a concrete resource. Generic request-shape codes live
// in the middleware package.
const (
	CodeEmailExists       = "EMAIL_EXISTS"
	CodeSlugExists        = "SLUG_EXISTS"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeAddressNotFound   = "ADDRESS_NOT_FOUND"
	CodeProductNotFound   = "PRODUCT_NOT_FOUND"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeInvalidFields     = "INVALID_FIELDS"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeUserHasOrders     = "USER_HAS_ORDERS"
	CodeProductInUse      = "PRODUCT_IN_USE"
)

// ListMeta describes the pagination window of a collection response.
type ListMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalCount int `json:"total_count"`
}

// ListResponse wraps collection payloads with their pagination window.
type ListResponse struct {
	Data interface{} `json:"data"`
	Meta ListMeta    `json:"meta"`
}

func newListMeta(page repository.Page, total int) ListMeta {
	return ListMeta{
		Page:       page.Number,
		PerPage:    page.Size,
		TotalPages: repository.TotalPages(total, page.Size),
		TotalCount: total,
	}
}

// pathID parses a uuid path parameter, answering the 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidID, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// pageFromQuery parses page and per_page, answering the 400 itself on
// failure. Absent parameters fall back to the defaults; present ones must be
// integers with page >= 1 and per_page within the allowed window.
func pageFromQuery(w http.ResponseWriter, r *http.Request) (repository.Page, bool) {
	page := repository.Page{Number: 1, Size: repository.DefaultPageSize}

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidPagination,
				"page must be a positive integer")
			return repository.Page{}, false
		}
		page.Number = n
	}
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > repository.MaxPageSize {
			middleware.RespondWithError(w, http.StatusBadRequest, middleware.CodeInvalidPagination,
				fmt.Sprintf("per_page must be between 1 and %d", repository.MaxPageSize))
			return repository.Page{}, false
		}
		page.Size = n
	}
	return page, true
}

// boolFilter parses an optional true/false query parameter, answering the
// 400 itself when the value is not a boolean.
func boolFilter(w http.ResponseWriter, r *http.Request, name string) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		middleware.RespondWithFieldError(w, http.StatusBadRequest, middleware.CodeValidationFailed,
			name+" must be true or false", name)
		return nil, false
	}
	return &v, true
}

// respondDomainValidation reports every violation of a failed entity
// validation, keeping the domain's stable per-violation codes.
func respondDomainValidation(w http.ResponseWriter, verr *domain.ValidationError) {
	middleware.RespondWithErrorDetail(w, http.StatusBadRequest, middleware.ErrorDetail{
		Code:    middleware.CodeValidationFailed,
		Message: "validation failed",
		Details: verr.Violations,
	})
}
