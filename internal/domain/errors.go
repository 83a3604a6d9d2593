// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidTimeOfDay is returned when a time-of-day is not a valid HH:MM value.
	ErrInvalidTimeOfDay = errors.New("invalid time of day, use HH:MM")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrNoValidTasks is returned when task input contains no parseable lines.
	ErrNoValidTasks = errors.New("no valid tasks found, use format: Task: HH:MM")

	// ErrInvalidTaskState is returned when a task state is not one of the known values.
	ErrInvalidTaskState = errors.New("invalid task state")

	// ErrInvalidBillType is returned when a bill entry type is not income, expense or addition.
	ErrInvalidBillType = errors.New("invalid bill type")
)

// ValidationError describes a single invalid field. It unwraps to the sentinel
// it was built with, so callers can match it with errors.Is(err, ErrValidation).
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError builds a ValidationError; a nil err defaults to ErrValidation.
func NewValidationError(field, message string, err error) error {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%s: %s %s", e.Err, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is makes every ValidationError match ErrValidation regardless of the wrapped sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
