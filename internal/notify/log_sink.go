package notify

import (
	"context"
	"log/slog"

	"github.com/phrazzld/taskwatch/internal/platform/logger"
)

// LogSink writes notifications to the log instead of delivering them.
// It is used when no chat transport is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. If logger is nil, a default logger will be used.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With(slog.String("component", "log_sink"))}
}

var _ Sink = (*LogSink)(nil)

// Send implements Sink.
func (s *LogSink) Send(ctx context.Context, msg Message) error {
	logger.FromContextOrDefault(ctx, s.logger).Info("notification",
		slog.String("topic", string(msg.Topic)),
		slog.String("text", msg.Text),
		slog.Int("photo_bytes", len(msg.Photo)))
	return nil
}
