package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		duplicate bool
	}{
		{name: "nil error", err: nil},
		{name: "generic error", err: errors.New("some error")},
		{name: "ErrNotFound", err: ErrNotFound, notFound: true},
		{name: "ErrTaskNotFound", err: ErrTaskNotFound, notFound: true},
		{name: "wrapped ErrBillNotFound", err: fmt.Errorf("lookup: %w", ErrBillNotFound), notFound: true},
		{name: "ErrDuplicate", err: ErrDuplicate, duplicate: true},
		{
			name:     "store error wrapping not found",
			err:      NewStoreError("task", "get", "no row", ErrTaskNotFound),
			notFound: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.notFound, IsNotFoundError(tc.err))
			assert.Equal(t, tc.duplicate, IsDuplicateError(tc.err))
		})
	}
}

func TestStoreErrorMessage(t *testing.T) {
	err := NewStoreError("task", "mark_missed", "database error", errors.New("connection reset"))
	assert.Equal(t, "mark_missed operation on task failed: database error: connection reset", err.Error())

	bare := NewStoreError("bill", "create", "invalid amount", nil)
	assert.Equal(t, "create operation on bill failed: invalid amount", bare.Error())
}
