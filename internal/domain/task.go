package domain

import (
	"errors"
	"strings"
	"time"
)

// TaskState is the lifecycle state of a task.
type TaskState string

// Possible task states. Transitions only move forward:
// pending -> notified -> completed | missed.
const (
	TaskStatePending   TaskState = "pending"
	TaskStateNotified  TaskState = "notified"
	TaskStateCompleted TaskState = "completed"
	TaskStateMissed    TaskState = "missed"
)

// Task invariant violations
var (
	ErrTaskDescriptionEmpty        = errors.New("task description cannot be empty")
	ErrTaskNotifiedAtMismatch      = errors.New("notified_at must be set exactly when the task has left pending")
	ErrTaskCompletionMismatch      = errors.New("completed_at and evidence must be set exactly when the task is completed")
	ErrTaskCompletedBeforeNotified = errors.New("completed_at cannot precede notified_at")
)

// Valid reports whether s is a known state.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStatePending, TaskStateNotified, TaskStateCompleted, TaskStateMissed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can occur from s.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateMissed
}

// IsOpen reports whether a task in s can still receive a completion.
func (s TaskState) IsOpen() bool {
	return s == TaskStatePending || s == TaskStateNotified
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	switch s {
	case TaskStatePending:
		return next == TaskStateNotified
	case TaskStateNotified:
		return next == TaskStateCompleted || next == TaskStateMissed
	}
	return false
}

// Task is a scheduled personal activity tracked through the reminder lifecycle.
// NotifiedAt is the payload of the notified state and is carried into both
// terminal states; CompletedAt and Evidence are the payload of completed.
type Task struct {
	ID            int64      `json:"id"`
	Description   string     `json:"description"`
	ScheduledTime TimeOfDay  `json:"scheduled_time"`
	State         TaskState  `json:"status"`
	NotifiedAt    *time.Time `json:"notified_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Evidence      *string    `json:"completion_evidence,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewTask creates a pending task for the given description and time-of-day.
func NewTask(description string, at TimeOfDay) (*Task, error) {
	task := &Task{
		Description:   strings.TrimSpace(description),
		ScheduledTime: at,
		State:         TaskStatePending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// NewCompletedTask creates a task that is already completed, used when evidence
// arrives before any task exists to receive it. The task is considered notified
// at the moment of completion so that the state invariants hold.
func NewCompletedTask(description string, at TimeOfDay, evidence string, completedAt time.Time) (*Task, error) {
	completedAt = completedAt.UTC()
	task := &Task{
		Description:   strings.TrimSpace(description),
		ScheduledTime: at,
		State:         TaskStateCompleted,
		NotifiedAt:    &completedAt,
		CompletedAt:   &completedAt,
		Evidence:      &evidence,
		CreatedAt:     completedAt,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks the task fields and the state payload invariants.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return NewValidationError("description", "cannot be empty", ErrTaskDescriptionEmpty)
	}

	if !t.ScheduledTime.Valid() {
		return NewValidationError("scheduled_time", "is out of range", ErrInvalidTimeOfDay)
	}

	if !t.State.Valid() {
		return NewValidationError("status", string(t.State), ErrInvalidTaskState)
	}

	if (t.NotifiedAt != nil) != (t.State != TaskStatePending) {
		return ErrTaskNotifiedAtMismatch
	}

	completed := t.State == TaskStateCompleted
	if (t.CompletedAt != nil) != completed || (t.Evidence != nil) != completed {
		return ErrTaskCompletionMismatch
	}

	if t.CompletedAt != nil && t.CompletedAt.Before(*t.NotifiedAt) {
		return ErrTaskCompletedBeforeNotified
	}

	return nil
}

// Deadline returns the end of the response window for a notified task.
func (t *Task) Deadline(window time.Duration) (time.Time, bool) {
	if t.NotifiedAt == nil {
		return time.Time{}, false
	}
	return t.NotifiedAt.Add(window), true
}

// ResponseTime returns how long after the reminder the task was completed.
// It reports false when either timestamp is missing or the duration is not positive.
func (t *Task) ResponseTime() (time.Duration, bool) {
	if t.NotifiedAt == nil || t.CompletedAt == nil {
		return 0, false
	}
	d := t.CompletedAt.Sub(*t.NotifiedAt)
	if d <= 0 {
		return 0, false
	}
	return d, true
}
