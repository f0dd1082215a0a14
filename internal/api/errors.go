package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/generation"
	"github.com/phrazzld/namegen-api/internal/service"
	"github.com/phrazzld/namegen-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidCursor),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	// A slug collision that escaped the service's retry loop
	case store.IsDuplicateError(err):
		return http.StatusConflict

	// Backing store down
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable

	// Direct generation errors
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, generation.ErrContentBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrNoCandidates),
		errors.Is(err, generation.ErrTransientFailure):
		return http.StatusBadGateway

	// Default: internal server error (includes service.ErrSlugExhausted)
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		// domain validation messages describe the request, never internals
		return capitalize(strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": "))
	case errors.Is(err, store.ErrInvalidCursor):
		return "Invalid cursor"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid task data"
	case errors.Is(err, service.ErrTaskNotFound), store.IsNotFoundError(err):
		return "Task not found"
	case store.IsDuplicateError(err):
		return "Task already exists"
	case errors.Is(err, service.ErrSlugExhausted):
		return "Could not allocate a task identifier, please retry"
	case errors.Is(err, store.ErrStoreUnavailable):
		return "Service temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "Name generation timed out"
	case errors.Is(err, generation.ErrContentBlocked):
		return "Request blocked by content safety filters"
	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrNoCandidates),
		errors.Is(err, generation.ErrTransientFailure):
		return "Name generation failed"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a user-friendly message
// naming the first failing field by its JSON name.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	fe := verrs[0]
	field := jsonFieldName(fe.Namespace())
	return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fe.Tag()))
}

// jsonFieldName converts "CreateTaskRequest.Genders[0]" into "genders[0]".
func jsonFieldName(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	if namespace == "" {
		return "field"
	}
	return strings.ToLower(namespace[:1]) + namespace[1:]
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
