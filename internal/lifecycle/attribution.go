package lifecycle

import (
	"context"
	"sync"
	"time"
)

// HeldEvidence is completion evidence that arrived while no task was open.
// It waits in the attribution table until the submitter names the task.
type HeldEvidence struct {
	Evidence   string    `json:"evidence"`
	ReceivedAt time.Time `json:"received_at"`
}

// Attribution is the per-conversation table of held evidence. A conversation
// holds at most one piece of evidence; holding again replaces it.
type Attribution interface {
	// Hold stores evidence for the conversation.
	Hold(ctx context.Context, conversationID string, held HeldEvidence) error

	// Take removes and returns the evidence held for the conversation.
	// The bool is false when nothing is held.
	Take(ctx context.Context, conversationID string) (HeldEvidence, bool, error)
}

// MemoryAttribution is an in-process Attribution with optional expiry.
type MemoryAttribution struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	held    HeldEvidence
	expires time.Time
}

// NewMemoryAttribution creates an in-memory attribution table. A ttl of zero
// keeps entries until they are taken.
func NewMemoryAttribution(ttl time.Duration) *MemoryAttribution {
	return &MemoryAttribution{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

var _ Attribution = (*MemoryAttribution)(nil)

// Hold implements Attribution.
func (m *MemoryAttribution) Hold(_ context.Context, conversationID string, held HeldEvidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{held: held}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.entries[conversationID] = entry
	return nil
}

// Take implements Attribution.
func (m *MemoryAttribution) Take(_ context.Context, conversationID string) (HeldEvidence, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[conversationID]
	if !ok {
		return HeldEvidence{}, false, nil
	}
	delete(m.entries, conversationID)

	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		return HeldEvidence{}, false, nil
	}
	return entry.held, true, nil
}
