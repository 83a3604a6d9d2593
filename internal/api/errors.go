package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskwatch/internal/api/shared"
	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/jobs"
	"github.com/phrazzld/taskwatch/internal/lifecycle"
	"github.com/phrazzld/taskwatch/internal/store"
)

// ErrDuplicateRequest is returned when an Idempotency-Key has already been used.
var ErrDuplicateRequest = errors.New("duplicate request")

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNoValidTasks),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, shared.ErrInvalidBody),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, lifecycle.ErrNoHeldEvidence),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, ErrDuplicateRequest):
		return http.StatusConflict

	// Background work cannot be accepted right now
	case errors.Is(err, jobs.ErrQueueFull),
		errors.Is(err, jobs.ErrQueueClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
// Validation messages are built from the offending field only.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, domain.ErrNoValidTasks):
		return "No valid tasks found. Use format: Task: HH:MM"
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, shared.ErrInvalidBody):
		return "Invalid request format"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, lifecycle.ErrNoHeldEvidence):
		return "No video is awaiting attribution"
	case errors.Is(err, ErrDuplicateRequest):
		return "Request already processed"
	case errors.Is(err, store.ErrDuplicate):
		return "Entity already exists"
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrQueueClosed):
		return "Report queue is busy, try again later"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns request validation failures into a message
// naming the first invalid field.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	first := errs[0]
	return fmt.Sprintf("Invalid %s: %s", first.Field(), getValidationTagMessage(first.Tag()))
}

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
	case "gt", "gte":
		return "too small"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the mapped status and a safe message for err. For
// server errors defaultMsg replaces the generic message when set.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
