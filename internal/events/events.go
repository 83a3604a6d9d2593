package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event types.
const (
	TypeTaskCreated    = "task.created"
	TypeTaskNotified   = "task.notified"
	TypeTaskCompleted  = "task.completed"
	TypeTaskMissed     = "task.missed"
	TypeEvidenceHeld   = "evidence.held"
	TypeTaskAttributed = "task.attributed"
	TypeReportSent     = "report.sent"
)

// LifecycleEvent records a state change made by the lifecycle engine or the
// report jobs. TaskID is zero for events that do not concern a single task.
type LifecycleEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// TaskID is the affected task, if any
	TaskID int64 `json:"task_id,omitempty"`

	// Payload carries event-specific details serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// OccurredAt is when the change happened
	OccurredAt time.Time `json:"occurred_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *LifecycleEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewLifecycleEvent creates an event of the given type. A nil payload is omitted.
func NewLifecycleEvent(eventType string, taskID int64, occurredAt time.Time, payload interface{}) (*LifecycleEvent, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return &LifecycleEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     taskID,
		Payload:    raw,
		OccurredAt: occurredAt.UTC(),
	}, nil
}

// EventHandler defines an interface for components that react to lifecycle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *LifecycleEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the engine to publish changes without knowing who listens.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *LifecycleEvent) error
}

// HandlerFunc adapts a plain function to EventHandler.
type HandlerFunc func(ctx context.Context, event *LifecycleEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *LifecycleEvent) error {
	return f(ctx, event)
}
