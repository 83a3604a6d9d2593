package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/taskwatch/internal/platform/logger"
)

// LogHandler writes every event to the structured log, giving an audit trail
// of task transitions.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler. If logger is nil, a default logger will be used.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger.With("component", "lifecycle_audit")}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *LifecycleEvent) error {
	attrs := []any{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.Time("occurred_at", event.OccurredAt),
	}
	if event.TaskID != 0 {
		attrs = append(attrs, slog.Int64("task_id", event.TaskID))
	}
	if len(event.Payload) > 0 {
		attrs = append(attrs, slog.String("payload", string(event.Payload)))
	}

	logger.FromContextOrDefault(ctx, h.logger).Info("lifecycle event", attrs...)
	return nil
}
