package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/taskwatch/internal/domain"
)

// ErrDeliveryFailed is returned when a sink could not deliver a message.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Topic selects the destination thread within the configured chat.
type Topic string

const (
	// TopicGeneral is the chat itself, outside any thread.
	TopicGeneral Topic = "general"
	// TopicResults carries reminders, missed notices and completion replies.
	TopicResults Topic = "results"
	// TopicBills carries the daily bills digest.
	TopicBills Topic = "bills"
)

// Message is one outbound notification. When Photo is set the message is
// delivered as an image with Text as its caption.
type Message struct {
	Topic     Topic
	Text      string
	Photo     []byte
	PhotoName string
}

// Sink delivers outbound notifications. Implementations must be safe for
// concurrent use; Send may block on network I/O and should honour ctx.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// ReminderMessage is the text sent when a task becomes due.
func ReminderMessage(task *domain.Task) Message {
	return Message{
		Topic: TopicResults,
		Text:  fmt.Sprintf("Reminder: %s - Please complete it!", task.Description),
	}
}

// MissedMessage is the text sent when a task's response window lapses.
func MissedMessage(task *domain.Task) Message {
	return Message{
		Topic: TopicResults,
		Text:  fmt.Sprintf("Task missed: %s", task.Description),
	}
}
