package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/store"
)

const taskColumns = `id, description, scheduled_time, status, notified_at, completed_at, completion_evidence, created_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	loc    *time.Location
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// loc is the zone used to interpret calendar dates in search queries; nil means UTC.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger, loc *time.Location) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if loc == nil {
		loc = time.UTC
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
		loc:    loc,
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger, loc: s.loc}
}

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, spec domain.TaskSpec) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(spec.Description, spec.At)
	if err != nil {
		log.Warn("task validation failed during create", slog.String("error", err.Error()))
		return nil, err
	}

	query := `
		INSERT INTO tasks (description, scheduled_time, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err = s.db.QueryRowContext(ctx, query, task.Description, task.ScheduledTime.String(), task.State).
		Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("description", task.Description))
		return nil, MapError(err)
	}

	log.Debug("task created",
		slog.Int64("task_id", task.ID),
		slog.String("scheduled_time", task.ScheduledTime.String()))
	return task, nil
}

// CreateBatch implements store.TaskStore.CreateBatch.
// When the store is bound to a connection pool, the inserts run in their own
// transaction; when it is already bound to a transaction, they join it.
func (s *PostgresTaskStore) CreateBatch(ctx context.Context, specs []domain.TaskSpec) ([]*domain.Task, error) {
	insertAll := func(ctx context.Context, ts store.TaskStore) ([]*domain.Task, error) {
		tasks := make([]*domain.Task, 0, len(specs))
		for _, spec := range specs {
			task, err := ts.Create(ctx, spec)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		return tasks, nil
	}

	db, ok := s.db.(*sql.DB)
	if !ok {
		return insertAll(ctx, s)
	}

	var created []*domain.Task
	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		created, err = insertAll(ctx, s.WithTx(tx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateCompleted implements store.TaskStore.CreateCompleted.
func (s *PostgresTaskStore) CreateCompleted(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if task.State != domain.TaskStateCompleted {
		return nil, fmt.Errorf("%w: task must be completed, got %s", store.ErrInvalidEntity, task.State)
	}
	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create_completed", slog.String("error", err.Error()))
		return nil, err
	}

	query := `
		INSERT INTO tasks (description, scheduled_time, status, notified_at, completed_at, completion_evidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	created := *task
	err := s.db.QueryRowContext(ctx, query,
		task.Description,
		task.ScheduledTime.String(),
		task.State,
		*task.NotifiedAt,
		*task.CompletedAt,
		*task.Evidence,
		task.CreatedAt,
	).Scan(&created.ID)
	if err != nil {
		log.Error("failed to create completed task", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Info("retroactive task created",
		slog.Int64("task_id", created.ID),
		slog.String("description", created.Description))
	return &created, nil
}

// Get implements store.TaskStore.Get.
func (s *PostgresTaskStore) Get(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get task",
			slog.Int64("task_id", id),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return task, nil
}

// ListOpen implements store.TaskStore.ListOpen.
func (s *PostgresTaskStore) ListOpen(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status IN ('pending', 'notified') ORDER BY id`
	return s.queryTasks(ctx, "list_open", query)
}

// ListNotified implements store.TaskStore.ListNotified.
func (s *PostgresTaskStore) ListNotified(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = 'notified' ORDER BY id`
	return s.queryTasks(ctx, "list_notified", query)
}

// LatestOpen implements store.TaskStore.LatestOpen.
func (s *PostgresTaskStore) LatestOpen(ctx context.Context) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status IN ('pending', 'notified') ORDER BY id DESC LIMIT 1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

// MarkNotified implements store.TaskStore.MarkNotified.
func (s *PostgresTaskStore) MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'notified', notified_at = $2
		WHERE id = $1 AND status = 'pending'
	`
	return s.transition(ctx, "mark_notified", query, id, at.UTC())
}

// MarkCompleted implements store.TaskStore.MarkCompleted.
func (s *PostgresTaskStore) MarkCompleted(ctx context.Context, id int64, evidence string, at time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'completed', completion_evidence = $2, completed_at = $3
		WHERE id = $1 AND status = 'notified'
	`
	return s.transition(ctx, "mark_completed", query, id, evidence, at.UTC())
}

// MarkMissed implements store.TaskStore.MarkMissed.
func (s *PostgresTaskStore) MarkMissed(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'missed'
		WHERE id = $1 AND status = 'notified'
	`
	return s.transition(ctx, "mark_missed", query, id)
}

// transition runs a conditional UPDATE and reports whether it changed a row.
func (s *PostgresTaskStore) transition(ctx context.Context, op, query string, args ...any) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("task transition failed",
			slog.String("operation", op),
			slog.Any("task_id", args[0]),
			slog.String("error", err.Error()))
		return false, store.NewStoreError("task", op, "database error", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, store.NewStoreError("task", op, "failed to get rows affected", err)
	}

	if rows == 0 {
		log.Debug("task transition not applied",
			slog.String("operation", op),
			slog.Any("task_id", args[0]))
	}
	return rows == 1, nil
}

// Search implements store.TaskStore.Search.
func (s *PostgresTaskStore) Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.Task, error) {
	const order = ` ORDER BY notified_at DESC NULLS LAST, id DESC`
	base := `SELECT ` + taskColumns + ` FROM tasks WHERE `

	switch filter.Kind {
	case domain.SearchByNameAndTime:
		query := base + `description ILIKE $1 ESCAPE '\' AND scheduled_time = $2` + order
		return s.queryTasks(ctx, "search", query, likePattern(filter.Name), filter.At.String())
	case domain.SearchByDate:
		query := base + `(notified_at AT TIME ZONE $2)::date = $1::date` + order
		return s.queryTasks(ctx, "search", query, filter.Date, s.loc.String())
	default:
		query := base + `description ILIKE $1 ESCAPE '\'` + order
		return s.queryTasks(ctx, "search", query, likePattern(filter.Name))
	}
}

// CountTerminal implements store.TaskStore.CountTerminal.
func (s *PostgresTaskStore) CountTerminal(ctx context.Context) (int, int, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'missed')
		FROM tasks
	`
	var completed, missed int
	if err := s.db.QueryRowContext(ctx, query).Scan(&completed, &missed); err != nil {
		return 0, 0, store.NewStoreError("task", "count_terminal", "database error", MapError(err))
	}
	return completed, missed, nil
}

// ListResponded implements store.TaskStore.ListResponded.
func (s *PostgresTaskStore) ListResponded(ctx context.Context, from, to time.Time) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE status = 'completed' AND notified_at >= $1 AND notified_at < $2
		ORDER BY notified_at`
	return s.queryTasks(ctx, "list_responded", query, from.UTC(), to.UTC())
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, op, query string, args ...any) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("operation", op), slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", op, "database error", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("operation", op), slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", op, "scan failed", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", op, "row iteration failed", err)
	}

	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task          domain.Task
		scheduledTime string
		status        string
		notifiedAt    sql.NullTime
		completedAt   sql.NullTime
		evidence      sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.Description,
		&scheduledTime,
		&status,
		&notifiedAt,
		&completedAt,
		&evidence,
		&task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	at, err := domain.ParseTimeOfDay(scheduledTime)
	if err != nil {
		return nil, fmt.Errorf("task %d has corrupt scheduled_time %q: %w", task.ID, scheduledTime, err)
	}
	task.ScheduledTime = at
	task.State = domain.TaskState(status)

	if notifiedAt.Valid {
		t := notifiedAt.Time.UTC()
		task.NotifiedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		task.CompletedAt = &t
	}
	if evidence.Valid {
		e := evidence.String
		task.Evidence = &e
	}

	return &task, nil
}

// likePattern wraps s for a substring ILIKE match, escaping LIKE metacharacters.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
