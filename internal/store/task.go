package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
)

// TaskStore defines the persistence contract for tasks.
//
// Every state transition is a single conditional statement: it applies only
// when the task is still in the expected source state, and the returned bool
// reports whether this caller performed the transition. Losing a transition is
// not an error.
type TaskStore interface {
	// Create inserts a pending task and returns it with its assigned ID.
	Create(ctx context.Context, spec domain.TaskSpec) (*domain.Task, error)

	// CreateBatch inserts pending tasks in the given order.
	// Implementations should run this inside a transaction so that either all
	// or none of the tasks are stored.
	CreateBatch(ctx context.Context, specs []domain.TaskSpec) ([]*domain.Task, error)

	// CreateCompleted inserts a task that is already completed.
	// The task must pass domain validation.
	CreateCompleted(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// Get retrieves a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Get(ctx context.Context, id int64) (*domain.Task, error)

	// ListOpen returns all tasks in the pending or notified state, ordered by ID.
	ListOpen(ctx context.Context) ([]*domain.Task, error)

	// ListNotified returns all tasks in the notified state, ordered by ID.
	ListNotified(ctx context.Context) ([]*domain.Task, error)

	// LatestOpen returns the most recently created task still in the pending
	// or notified state. Returns ErrTaskNotFound when there is none.
	LatestOpen(ctx context.Context) (*domain.Task, error)

	// MarkNotified moves a task from pending to notified, recording at.
	MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error)

	// MarkCompleted moves a task from notified to completed with evidence.
	MarkCompleted(ctx context.Context, id int64, evidence string, at time.Time) (bool, error)

	// MarkMissed moves a task from notified to missed.
	MarkMissed(ctx context.Context, id int64) (bool, error)

	// Search returns tasks matching the filter, most recently notified first.
	// Returns an empty slice when nothing matches.
	Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Task, error)

	// CountTerminal returns the number of completed and missed tasks.
	CountTerminal(ctx context.Context) (completed, missed int, err error)

	// ListResponded returns completed tasks notified within [from, to),
	// ordered by notification time.
	ListResponded(ctx context.Context, from, to time.Time) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// BillStore defines the persistence contract for bill entries.
type BillStore interface {
	// Create saves a new bill entry and returns it with its assigned ID.
	Create(ctx context.Context, entry *domain.BillEntry) (*domain.BillEntry, error)

	// ListByDate returns the entries recorded for date (YYYY-MM-DD), ordered by time.
	// Returns an empty slice if there are none.
	ListByDate(ctx context.Context, date string) ([]*domain.BillEntry, error)

	// WithTx returns a new BillStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) BillStore
}
