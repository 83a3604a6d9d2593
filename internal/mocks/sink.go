package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/taskwatch/internal/notify"
)

// RecordingSink implements notify.Sink and records every message it is given.
type RecordingSink struct {
	// SendFn, when set, decides the result of Send. The message is recorded
	// only when it returns nil.
	SendFn func(ctx context.Context, msg notify.Message) error

	mu       sync.Mutex
	messages []notify.Message
}

var _ notify.Sink = (*RecordingSink)(nil)

// Send implements notify.Sink.
func (s *RecordingSink) Send(ctx context.Context, msg notify.Message) error {
	if s.SendFn != nil {
		if err := s.SendFn(ctx, msg); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages.
func (s *RecordingSink) Messages() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Message(nil), s.messages...)
}

// Texts returns the text of every recorded message.
func (s *RecordingSink) Texts() []string {
	msgs := s.Messages()
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

// Count returns how many recorded messages have exactly the given text.
func (s *RecordingSink) Count(text string) int {
	n := 0
	for _, t := range s.Texts() {
		if t == text {
			n++
		}
	}
	return n
}
