package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-assistant/internal/api/shared"
	"github.com/phrazzld/scry-assistant/internal/assistant"
)

// ErrInvalidID is returned for path parameters that are not UUIDs.
var ErrInvalidID = errors.New("invalid id")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, shared.ErrInvalidRequest),
		errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrErrorBudgetExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that contains
// no internal details.
func GetSafeErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, ErrTooManySessions):
		return "Too many active sessions, please try again later"
	case errors.Is(err, ErrInvalidID):
		return "Invalid session id"
	case errors.Is(err, shared.ErrInvalidRequest):
		return "Invalid request format"
	case errors.As(err, &verrs):
		return SanitizeValidationError(verrs)
	case errors.Is(err, assistant.ErrErrorBudgetExceeded):
		return "The assistant is currently unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "The request took too long"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError describes the first failed field of a validation
// error in user terms.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted error. A non-empty message overrides the safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}
