package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/store"
)

// MockTaskStore implements store.TaskStore in memory.
type MockTaskStore struct {
	// Function fields for customizable behavior
	CreateBatchFn   func(ctx context.Context, specs []domain.TaskSpec) ([]*domain.Task, error)
	ListOpenFn      func(ctx context.Context) ([]*domain.Task, error)
	LatestOpenFn    func(ctx context.Context) (*domain.Task, error)
	MarkNotifiedFn  func(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkCompletedFn func(ctx context.Context, id int64, evidence string, at time.Time) (bool, error)
	MarkMissedFn    func(ctx context.Context, id int64) (bool, error)

	// Loc is the zone used for date searches; nil means UTC.
	Loc *time.Location

	mu     sync.Mutex
	tasks  map[int64]*domain.Task
	nextID int64
}

// NewMockTaskStore creates an empty in-memory task store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		tasks: make(map[int64]*domain.Task),
	}
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// Put stores a copy of task as-is, assigning an ID when it has none.
// It bypasses validation so tests can seed arbitrary rows.
func (m *MockTaskStore) Put(task *domain.Task) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := cloneTask(task)
	if c.ID == 0 {
		m.nextID++
		c.ID = m.nextID
	} else if c.ID > m.nextID {
		m.nextID = c.ID
	}
	m.tasks[c.ID] = c
	return cloneTask(c)
}

// Snapshot returns a copy of the task with id, or nil.
func (m *MockTaskStore) Snapshot(id int64) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return cloneTask(t)
	}
	return nil
}

// All returns copies of every stored task ordered by ID.
func (m *MockTaskStore) All() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectLocked(func(*domain.Task) bool { return true })
}

// Create implements store.TaskStore.
func (m *MockTaskStore) Create(_ context.Context, spec domain.TaskSpec) (*domain.Task, error) {
	task, err := domain.NewTask(spec.Description, spec.At)
	if err != nil {
		return nil, err
	}
	return m.Put(task), nil
}

// CreateBatch implements store.TaskStore.
func (m *MockTaskStore) CreateBatch(ctx context.Context, specs []domain.TaskSpec) ([]*domain.Task, error) {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, specs)
	}

	// validate everything first so a bad spec stores nothing
	pending := make([]*domain.Task, 0, len(specs))
	for _, spec := range specs {
		task, err := domain.NewTask(spec.Description, spec.At)
		if err != nil {
			return nil, err
		}
		pending = append(pending, task)
	}

	created := make([]*domain.Task, 0, len(pending))
	for _, task := range pending {
		created = append(created, m.Put(task))
	}
	return created, nil
}

// CreateCompleted implements store.TaskStore.
func (m *MockTaskStore) CreateCompleted(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if task.State != domain.TaskStateCompleted {
		return nil, store.ErrInvalidEntity
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return m.Put(task), nil
}

// Get implements store.TaskStore.
func (m *MockTaskStore) Get(_ context.Context, id int64) (*domain.Task, error) {
	if t := m.Snapshot(id); t != nil {
		return t, nil
	}
	return nil, store.ErrTaskNotFound
}

// ListOpen implements store.TaskStore.
func (m *MockTaskStore) ListOpen(ctx context.Context) ([]*domain.Task, error) {
	if m.ListOpenFn != nil {
		return m.ListOpenFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectLocked(func(t *domain.Task) bool { return t.State.IsOpen() }), nil
}

// ListNotified implements store.TaskStore.
func (m *MockTaskStore) ListNotified(context.Context) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectLocked(func(t *domain.Task) bool { return t.State == domain.TaskStateNotified }), nil
}

// LatestOpen implements store.TaskStore.
func (m *MockTaskStore) LatestOpen(ctx context.Context) (*domain.Task, error) {
	if m.LatestOpenFn != nil {
		return m.LatestOpenFn(ctx)
	}
	open, _ := m.ListOpen(ctx)
	if len(open) == 0 {
		return nil, store.ErrTaskNotFound
	}
	return open[len(open)-1], nil
}

// MarkNotified implements store.TaskStore.
func (m *MockTaskStore) MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error) {
	if m.MarkNotifiedFn != nil {
		return m.MarkNotifiedFn(ctx, id, at)
	}
	return m.transition(id, domain.TaskStatePending, func(t *domain.Task) {
		ts := at.UTC()
		t.State = domain.TaskStateNotified
		t.NotifiedAt = &ts
	}), nil
}

// MarkCompleted implements store.TaskStore.
func (m *MockTaskStore) MarkCompleted(ctx context.Context, id int64, evidence string, at time.Time) (bool, error) {
	if m.MarkCompletedFn != nil {
		return m.MarkCompletedFn(ctx, id, evidence, at)
	}
	return m.transition(id, domain.TaskStateNotified, func(t *domain.Task) {
		ts := at.UTC()
		ev := evidence
		t.State = domain.TaskStateCompleted
		t.CompletedAt = &ts
		t.Evidence = &ev
	}), nil
}

// MarkMissed implements store.TaskStore.
func (m *MockTaskStore) MarkMissed(ctx context.Context, id int64) (bool, error) {
	if m.MarkMissedFn != nil {
		return m.MarkMissedFn(ctx, id)
	}
	return m.transition(id, domain.TaskStateNotified, func(t *domain.Task) {
		t.State = domain.TaskStateMissed
	}), nil
}

func (m *MockTaskStore) transition(id int64, from domain.TaskState, apply func(*domain.Task)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.State != from {
		return false
	}
	apply(t)
	return true
}

// Search implements store.TaskStore.
func (m *MockTaskStore) Search(_ context.Context, filter domain.SearchFilter) ([]*domain.Task, error) {
	loc := m.Loc
	if loc == nil {
		loc = time.UTC
	}
	name := strings.ToLower(strings.TrimSpace(filter.Name))

	m.mu.Lock()
	matches := m.selectLocked(func(t *domain.Task) bool {
		switch filter.Kind {
		case domain.SearchByDate:
			return t.NotifiedAt != nil && t.NotifiedAt.In(loc).Format(domain.DateLayout) == filter.Date
		case domain.SearchByNameAndTime:
			return strings.Contains(strings.ToLower(t.Description), name) && t.ScheduledTime == filter.At
		default:
			return strings.Contains(strings.ToLower(t.Description), name)
		}
	})
	m.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].NotifiedAt, matches[j].NotifiedAt
		switch {
		case a == nil && b == nil:
			return matches[i].ID > matches[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return matches[i].ID > matches[j].ID
		default:
			return a.After(*b)
		}
	})
	return matches, nil
}

// CountTerminal implements store.TaskStore.
func (m *MockTaskStore) CountTerminal(context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var completed, missed int
	for _, t := range m.tasks {
		switch t.State {
		case domain.TaskStateCompleted:
			completed++
		case domain.TaskStateMissed:
			missed++
		}
	}
	return completed, missed, nil
}

// ListResponded implements store.TaskStore.
func (m *MockTaskStore) ListResponded(_ context.Context, from, to time.Time) ([]*domain.Task, error) {
	m.mu.Lock()
	matches := m.selectLocked(func(t *domain.Task) bool {
		return t.State == domain.TaskStateCompleted && t.NotifiedAt != nil &&
			!t.NotifiedAt.Before(from) && t.NotifiedAt.Before(to)
	})
	m.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].NotifiedAt.Before(*matches[j].NotifiedAt)
	})
	return matches, nil
}

// WithTx implements store.TaskStore. The in-memory store has no transactions.
func (m *MockTaskStore) WithTx(*sql.Tx) store.TaskStore {
	return m
}

func (m *MockTaskStore) selectLocked(keep func(*domain.Task) bool) []*domain.Task {
	out := []*domain.Task{}
	for _, t := range m.tasks {
		if keep(t) {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	if t.NotifiedAt != nil {
		v := *t.NotifiedAt
		c.NotifiedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.Evidence != nil {
		v := *t.Evidence
		c.Evidence = &v
	}
	return &c
}
