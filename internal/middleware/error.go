package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Machine codes for failures that are not tied to one resource.
// Resource-specific codes (EMAIL_EXISTS, ORDER_NOT_FOUND, ...) live with
// their handlers in transport.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInvalidBody       = "INVALID_BODY"
	CodeInvalidID         = "INVALID_ID"
	CodeInvalidPagination = "INVALID_PAGINATION"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// ErrorResponse is the envelope every failure is wrapped in.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine code, a human message, the offending field
// when there is exactly one, and a structured violation list otherwise.
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// RespondWithError sends the error envelope with a code and message only.
func RespondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	RespondWithErrorDetail(w, statusCode, ErrorDetail{Code: code, Message: message})
}

// RespondWithFieldError sends the error envelope blaming a single field.
func RespondWithFieldError(w http.ResponseWriter, statusCode int, code, message, field string) {
	RespondWithErrorDetail(w, statusCode, ErrorDetail{Code: code, Message: message, Field: field})
}

// RespondWithErrorDetail sends a fully assembled error envelope.
func RespondWithErrorDetail(w http.ResponseWriter, statusCode int, detail ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: detail})
}

// RespondWithValidationErrors reports every request-level validation failure
// in one response.
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	RespondWithErrorDetail(w, http.StatusBadRequest, ErrorDetail{
		Code:    CodeValidationFailed,
		Message: "validation failed",
		Details: errors,
	})
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 envelopes
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, CodeInternalError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
