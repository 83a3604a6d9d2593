package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/store"
)

// MockBillStore implements store.BillStore in memory.
type MockBillStore struct {
	// ListByDateError, when set, is returned by ListByDate.
	ListByDateError error

	mu      sync.Mutex
	entries []*domain.BillEntry
	nextID  int64
}

// NewMockBillStore creates an empty in-memory bill store.
func NewMockBillStore() *MockBillStore {
	return &MockBillStore{}
}

var _ store.BillStore = (*MockBillStore)(nil)

// Create implements store.BillStore.
func (m *MockBillStore) Create(_ context.Context, entry *domain.BillEntry) (*domain.BillEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	c := *entry
	c.ID = m.nextID
	m.entries = append(m.entries, &c)
	out := c
	return &out, nil
}

// ListByDate implements store.BillStore.
func (m *MockBillStore) ListByDate(_ context.Context, date string) ([]*domain.BillEntry, error) {
	if m.ListByDateError != nil {
		return nil, m.ListByDateError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.BillEntry{}
	for _, e := range m.entries {
		if e.Date == date {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// WithTx implements store.BillStore.
func (m *MockBillStore) WithTx(*sql.Tx) store.BillStore {
	return m
}
