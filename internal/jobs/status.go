package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is the tracked state of one job.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusStore tracks job status. Records are kept for a bounded number of
// recent jobs; the oldest are evicted first.
type StatusStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	order   []uuid.UUID
	limit   int
}

// NewStatusStore creates a store that keeps at most limit records.
func NewStatusStore(limit int) *StatusStore {
	if limit <= 0 {
		limit = 100
	}
	return &StatusStore{records: make(map[uuid.UUID]*Record), limit: limit}
}

// Update sets the status of a job, creating its record when needed.
func (s *StatusStore) Update(job Job, status Status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[job.ID()]
	if !ok {
		rec = &Record{ID: job.ID(), Type: job.Type()}
		s.records[job.ID()] = rec
		s.order = append(s.order, job.ID())
		for len(s.order) > s.limit {
			delete(s.records, s.order[0])
			s.order = s.order[1:]
		}
	}
	rec.Status = status
	rec.Error = errMsg
	rec.UpdatedAt = time.Now().UTC()
}

// Get returns a copy of the record for id.
func (s *StatusStore) Get(id uuid.UUID) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}
