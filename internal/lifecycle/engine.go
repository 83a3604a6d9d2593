package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/events"
	"github.com/phrazzld/taskwatch/internal/notify"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/store"
)

const tracerName = "github.com/phrazzld/taskwatch/internal/lifecycle"

// DefaultClockSkew is the tolerance for arrival times ahead of the engine clock.
const DefaultClockSkew = 2 * time.Minute

// maxCatchUp bounds how far back a poll looks for scheduled minutes it has
// not covered yet.
const maxCatchUp = 5 * time.Minute

// ErrNoHeldEvidence is returned by Attribute when the conversation has no
// evidence waiting for a task name.
var ErrNoHeldEvidence = errors.New("no evidence awaiting attribution")

// Config holds the engine's timing parameters.
type Config struct {
	// PollInterval is the reminder cadence used by Run.
	PollInterval time.Duration
	// ResponseWindow is W, the time allowed between reminder and completion.
	ResponseWindow time.Duration
	// ClockSkew bounds how far a caller-supplied arrival time may lead the
	// engine clock. Arrival times are never later than the engine clock.
	ClockSkew time.Duration
	// Location is the zone scheduled times of day are interpreted in.
	Location *time.Location
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Engine drives tasks through pending, notified, completed and missed.
//
// The store's conditional transitions are the only arbitration between the
// deadline path and inbound completions; the engine holds no lock across
// store calls.
type Engine struct {
	tasks     store.TaskStore
	sink      notify.Sink
	attrib    Attribution
	emitter   events.EventEmitter
	cfg       Config
	deadlines *deadlineQueue
	tracer    trace.Tracer
	logger    *slog.Logger

	pollMu   sync.Mutex
	lastPoll time.Time
}

// NewEngine creates a lifecycle engine. A nil emitter discards events.
func NewEngine(
	tasks store.TaskStore,
	sink notify.Sink,
	attrib Attribution,
	emitter events.EventEmitter,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if sink == nil {
		panic("sink cannot be nil")
	}
	if attrib == nil {
		panic("attrib cannot be nil")
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.ResponseWindow <= 0 {
		cfg.ResponseWindow = 40 * time.Minute
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = DefaultClockSkew
	}

	return &Engine{
		tasks:     tasks,
		sink:      sink,
		attrib:    attrib,
		emitter:   emitter,
		cfg:       cfg,
		deadlines: newDeadlineQueue(),
		tracer:    otel.Tracer(tracerName),
		logger:    logger.With(slog.String("component", "lifecycle_engine")),
	}
}

// ResponseWindow returns W.
func (e *Engine) ResponseWindow() time.Duration {
	return e.cfg.ResponseWindow
}

// NextDeadline returns the earliest scheduled response-window deadline.
func (e *Engine) NextDeadline() (time.Time, bool) {
	return e.deadlines.Next()
}

func (e *Engine) now() time.Time {
	return e.cfg.Now()
}

// CreateTasks parses "description: HH:MM" lines and stores the valid ones as
// pending tasks, ordered by time of day. Lines that do not parse are returned
// as rejected. If no line parses, domain.ErrNoValidTasks is returned.
func (e *Engine) CreateTasks(ctx context.Context, text string) ([]*domain.Task, []string, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	specs, rejected, err := domain.ParseTaskLines(text)
	if err != nil {
		log.Debug("no valid task lines", slog.Int("rejected", len(rejected)))
		return nil, rejected, err
	}

	created, err := e.tasks.CreateBatch(ctx, specs)
	if err != nil {
		log.Error("failed to create tasks",
			slog.String("error", err.Error()),
			slog.Int("count", len(specs)))
		return nil, rejected, fmt.Errorf("failed to create tasks: %w", err)
	}

	for _, task := range created {
		e.emit(ctx, events.TypeTaskCreated, task.ID, task.CreatedAt, map[string]string{
			"description":    task.Description,
			"scheduled_time": task.ScheduledTime.String(),
		})
	}

	log.Info("tasks created",
		slog.Int("created", len(created)),
		slog.Int("rejected", len(rejected)))
	return created, rejected, nil
}

// Poll runs one reminder pass and then expires every due deadline.
//
// Each pending task scheduled for the current minute, or for a minute since
// the previous pass (at most maxCatchUp back), is reminded and then marked
// notified. A delivery failure leaves the task pending so the next pass
// retries it. It returns the number of tasks notified; errors from
// individual tasks are joined.
func (e *Engine) Poll(ctx context.Context) (int, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.poll")
	defer span.End()

	log := logger.FromContextOrDefault(ctx, e.logger)
	now := e.now()
	current := domain.TimeOfDayOf(now.In(e.cfg.Location))
	due := e.dueMinutes(now)

	open, err := e.tasks.ListOpen(ctx)
	if err != nil {
		recordError(span, err)
		log.Error("failed to list open tasks", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to list open tasks: %w", err)
	}

	var errs []error
	notified := 0
	for _, task := range open {
		if task.State != domain.TaskStatePending || !due[task.ScheduledTime] {
			continue
		}
		won, err := e.remind(ctx, task, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if won {
			notified++
		}
	}

	if _, err := e.ExpireDue(ctx); err != nil {
		errs = append(errs, err)
	}

	span.SetAttributes(
		attribute.String("poll.time_of_day", current.String()),
		attribute.Int("poll.notified", notified),
	)
	if err := errors.Join(errs...); err != nil {
		recordError(span, err)
		return notified, err
	}
	return notified, nil
}

// dueMinutes returns every time of day from the previous pass's minute
// through now's minute in the configured zone, and records now as the
// previous pass.
func (e *Engine) dueMinutes(now time.Time) map[domain.TimeOfDay]bool {
	cur := now.In(e.cfg.Location).Truncate(time.Minute)

	e.pollMu.Lock()
	from := e.lastPoll
	if from.IsZero() || from.After(cur) {
		from = cur
	}
	if cur.Sub(from) > maxCatchUp {
		from = cur.Add(-maxCatchUp)
	}
	e.lastPoll = cur
	e.pollMu.Unlock()

	due := make(map[domain.TimeOfDay]bool)
	for t := from; !t.After(cur); t = t.Add(time.Minute) {
		due[domain.TimeOfDayOf(t)] = true
	}
	return due
}

func (e *Engine) remind(ctx context.Context, task *domain.Task, now time.Time) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.remind",
		trace.WithAttributes(attribute.Int64("task.id", task.ID)))
	defer span.End()

	log := logger.FromContextOrDefault(ctx, e.logger).With(slog.Int64("task_id", task.ID))

	if err := e.sink.Send(ctx, notify.ReminderMessage(task)); err != nil {
		recordError(span, err)
		log.Warn("reminder delivery failed, retrying next poll", slog.String("error", err.Error()))
		return false, fmt.Errorf("failed to send reminder for task %d: %w", task.ID, err)
	}

	won, err := e.tasks.MarkNotified(ctx, task.ID, now)
	if err != nil {
		// the reminder went out; the next poll may send it again
		recordError(span, err)
		log.Error("failed to mark task notified", slog.String("error", err.Error()))
		return false, fmt.Errorf("failed to mark task %d notified: %w", task.ID, err)
	}
	if !won {
		log.Debug("task already notified")
		return false, nil
	}

	deadline := now.Add(e.cfg.ResponseWindow)
	e.deadlines.Schedule(task.ID, deadline)
	e.emit(ctx, events.TypeTaskNotified, task.ID, now, map[string]time.Time{"deadline": deadline.UTC()})

	log.Info("task reminder sent", slog.Time("deadline", deadline))
	return true, nil
}

// ExpireDue expires every task whose deadline has passed and returns how many
// became missed.
func (e *Engine) ExpireDue(ctx context.Context) (int, error) {
	var errs []error
	missed := 0
	for _, id := range e.deadlines.PopDue(e.now()) {
		won, err := e.Expire(ctx, id)
		if err != nil {
			errs = append(errs, err)
		}
		if won {
			missed++
		}
	}
	return missed, errors.Join(errs...)
}

// Expire marks a notified task missed once its response window has lapsed.
// It reports whether this call performed the transition. A task that already
// completed, or whose window is still open, is left alone.
func (e *Engine) Expire(ctx context.Context, id int64) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.expire",
		trace.WithAttributes(attribute.Int64("task.id", id)))
	defer span.End()

	log := logger.FromContextOrDefault(ctx, e.logger).With(slog.Int64("task_id", id))
	now := e.now()

	task, err := e.tasks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.Warn("deadline fired for unknown task")
			return false, nil
		}
		recordError(span, err)
		e.deadlines.Schedule(id, now.Add(e.cfg.PollInterval))
		log.Error("failed to load task for expiry", slog.String("error", err.Error()))
		return false, fmt.Errorf("failed to load task %d: %w", id, err)
	}

	if task.State != domain.TaskStateNotified {
		log.Debug("task no longer awaiting completion", slog.String("state", string(task.State)))
		return false, nil
	}
	if deadline, ok := task.Deadline(e.cfg.ResponseWindow); ok && now.Before(deadline) {
		e.deadlines.Schedule(id, deadline)
		return false, nil
	}

	won, err := e.tasks.MarkMissed(ctx, id)
	if err != nil {
		recordError(span, err)
		e.deadlines.Schedule(id, now.Add(e.cfg.PollInterval))
		log.Error("failed to mark task missed", slog.String("error", err.Error()))
		return false, fmt.Errorf("failed to mark task %d missed: %w", id, err)
	}
	if !won {
		log.Debug("task resolved before expiry")
		return false, nil
	}

	span.SetAttributes(attribute.Bool("task.missed", true))
	e.emit(ctx, events.TypeTaskMissed, id, now, nil)
	log.Info("task missed")

	if err := e.sink.Send(ctx, notify.MissedMessage(task)); err != nil {
		recordError(span, err)
		log.Error("failed to send missed notification", slog.String("error", err.Error()))
		return true, fmt.Errorf("failed to send missed notification for task %d: %w", id, err)
	}
	return true, nil
}

// Complete applies a completion signal.
//
// The target is sig.TaskID when set, otherwise the most recent open task.
// With no open task the evidence is held for the conversation and the caller
// is asked to name the task. Outcomes other than an error are reported in the
// result; only store and validation failures are returned as errors.
func (e *Engine) Complete(ctx context.Context, sig CompletionSignal) (*CompletionResult, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.complete")
	defer span.End()

	log := logger.FromContextOrDefault(ctx, e.logger)

	if strings.TrimSpace(sig.Evidence) == "" {
		return nil, domain.NewValidationError("evidence", "cannot be empty", domain.ErrEmptyContent)
	}
	receivedAt, err := e.arrivalTime(ctx, sig.ReceivedAt)
	if err != nil {
		return nil, err
	}

	task, err := e.completionTarget(ctx, sig.TaskID)
	if err != nil {
		if sig.TaskID == 0 && errors.Is(err, store.ErrTaskNotFound) {
			return e.holdOrphan(ctx, sig, receivedAt)
		}
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID))
	log = log.With(slog.Int64("task_id", task.ID))

	result := func(outcome Outcome, t *domain.Task) *CompletionResult {
		span.SetAttributes(attribute.String("completion.outcome", string(outcome)))
		return &CompletionResult{Outcome: outcome, Task: t, Reply: replyFor(outcome, e.cfg.ResponseWindow)}
	}

	switch task.State {
	case domain.TaskStatePending:
		log.Debug("completion for task not yet reminded")
		return result(OutcomeNotAwaiting, task), nil
	case domain.TaskStateCompleted, domain.TaskStateMissed:
		log.Debug("completion for resolved task", slog.String("state", string(task.State)))
		return result(OutcomeAlreadyResolved, task), nil
	}

	if receivedAt.Before(*task.NotifiedAt) {
		return nil, domain.NewValidationError("received_at", "precedes the reminder", domain.ErrInvalidTaskState)
	}
	if deadline, _ := task.Deadline(e.cfg.ResponseWindow); receivedAt.After(deadline) {
		log.Info("completion after response window",
			slog.Duration("elapsed", receivedAt.Sub(*task.NotifiedAt)))
		return result(OutcomeWindowExpired, task), nil
	}

	won, err := e.tasks.MarkCompleted(ctx, task.ID, sig.Evidence, receivedAt)
	if err != nil {
		recordError(span, err)
		log.Error("failed to mark task completed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to mark task %d completed: %w", task.ID, err)
	}
	if !won {
		current, err := e.tasks.Get(ctx, task.ID)
		if err != nil {
			current = task
		}
		log.Info("task resolved before completion was applied")
		return result(OutcomeAlreadyResolved, current), nil
	}

	e.deadlines.Cancel(task.ID)

	completedAt := receivedAt.UTC()
	evidence := sig.Evidence
	task.State = domain.TaskStateCompleted
	task.CompletedAt = &completedAt
	task.Evidence = &evidence

	e.emit(ctx, events.TypeTaskCompleted, task.ID, receivedAt, map[string]string{"evidence": evidence})
	log.Info("task completed", slog.Duration("response_time", receivedAt.Sub(*task.NotifiedAt)))
	return result(OutcomeCompleted, task), nil
}

func (e *Engine) completionTarget(ctx context.Context, taskID int64) (*domain.Task, error) {
	if taskID != 0 {
		task, err := e.tasks.Get(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to load task %d: %w", taskID, err)
		}
		return task, nil
	}
	task, err := e.tasks.LatestOpen(ctx)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find open task: %w", err)
	}
	return task, nil
}

// arrivalTime bounds a caller-supplied arrival time by the engine clock. A
// zero value means now. A time further ahead than ClockSkew is rejected, one
// slightly ahead is read as now, and one more than ClockSkew behind is
// replaced by now, so a stale timestamp cannot reopen a lapsed window.
func (e *Engine) arrivalTime(ctx context.Context, claimed time.Time) (time.Time, error) {
	now := e.now()
	switch {
	case claimed.IsZero():
		return now, nil
	case claimed.After(now.Add(e.cfg.ClockSkew)):
		return time.Time{}, domain.NewValidationError("received_at", "is in the future", domain.ErrValidation)
	case claimed.After(now):
		return now, nil
	case claimed.Before(now.Add(-e.cfg.ClockSkew)):
		logger.FromContextOrDefault(ctx, e.logger).Warn("stale arrival time replaced by server time",
			slog.Time("received_at", claimed),
			slog.Time("now", now))
		return now, nil
	}
	return claimed, nil
}

func (e *Engine) holdOrphan(ctx context.Context, sig CompletionSignal, receivedAt time.Time) (*CompletionResult, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	if strings.TrimSpace(sig.ConversationID) == "" {
		return nil, domain.NewValidationError("conversation_id", "is required when no task is open", domain.ErrEmptyContent)
	}

	held := HeldEvidence{Evidence: sig.Evidence, ReceivedAt: receivedAt.UTC()}
	if err := e.attrib.Hold(ctx, sig.ConversationID, held); err != nil {
		log.Error("failed to hold evidence", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to hold evidence: %w", err)
	}

	e.emit(ctx, events.TypeEvidenceHeld, 0, receivedAt, map[string]string{
		"conversation_id": sig.ConversationID,
		"evidence":        sig.Evidence,
	})
	log.Info("evidence held for attribution", slog.String("conversation_id", sig.ConversationID))

	return &CompletionResult{
		Outcome: OutcomeNeedsAttribution,
		Reply:   replyFor(OutcomeNeedsAttribution, e.cfg.ResponseWindow),
	}, nil
}

// Attribute names the task for evidence held in a conversation. text must be
// a "description: HH:MM" line. A task is created directly in the completed
// state with the held evidence and its arrival time. When text does not parse
// the evidence stays held.
func (e *Engine) Attribute(ctx context.Context, conversationID, text string) (*domain.Task, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.attribute")
	defer span.End()

	log := logger.FromContextOrDefault(ctx, e.logger).With(slog.String("conversation_id", conversationID))

	spec, err := domain.ParseTaskLine(text)
	if err != nil {
		return nil, err
	}

	held, ok, err := e.attrib.Take(ctx, conversationID)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to take held evidence: %w", err)
	}
	if !ok {
		return nil, ErrNoHeldEvidence
	}

	task, err := domain.NewCompletedTask(spec.Description, spec.At, held.Evidence, held.ReceivedAt)
	if err == nil {
		task, err = e.tasks.CreateCompleted(ctx, task)
	}
	if err != nil {
		recordError(span, err)
		if holdErr := e.attrib.Hold(ctx, conversationID, held); holdErr != nil {
			log.Error("failed to restore held evidence", slog.String("error", holdErr.Error()))
		}
		log.Error("failed to create attributed task", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create attributed task: %w", err)
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID))
	e.emit(ctx, events.TypeTaskAttributed, task.ID, held.ReceivedAt, map[string]string{
		"conversation_id": conversationID,
		"evidence":        held.Evidence,
	})
	log.Info("orphan evidence attributed", slog.Int64("task_id", task.ID))
	return task, nil
}

// Recover schedules a deadline at notified_at+W for every task still awaiting
// completion, then expires those already past. It returns the number of
// deadlines scheduled.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	notified, err := e.tasks.ListNotified(ctx)
	if err != nil {
		log.Error("failed to list notified tasks", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to list notified tasks: %w", err)
	}

	scheduled := 0
	for _, task := range notified {
		if deadline, ok := task.Deadline(e.cfg.ResponseWindow); ok {
			e.deadlines.Schedule(task.ID, deadline)
			scheduled++
		}
	}
	log.Info("response windows recovered", slog.Int("count", scheduled))

	missed, err := e.ExpireDue(ctx)
	if missed > 0 {
		log.Info("expired overdue tasks on recovery", slog.Int("missed", missed))
	}
	return scheduled, err
}

// Run recovers outstanding deadlines and then polls on the configured cadence
// until ctx is cancelled. Between polls it wakes for the earliest deadline.
// Errors are logged; the loop keeps going.
func (e *Engine) Run(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, e.logger)

	if _, err := e.Recover(ctx); err != nil {
		log.Error("recovery incomplete", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	log.Info("lifecycle loop started",
		slog.Duration("poll_interval", e.cfg.PollInterval),
		slog.Duration("response_window", e.cfg.ResponseWindow))

	for {
		var deadlineC <-chan time.Time
		var timer *time.Timer
		if next, ok := e.deadlines.Next(); ok {
			timer = time.NewTimer(max(next.Sub(e.now()), 0))
			deadlineC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			log.Info("lifecycle loop stopped")
			return nil
		case <-ticker.C:
			if _, err := e.Poll(ctx); err != nil {
				log.Error("poll failed", slog.String("error", err.Error()))
			}
		case <-deadlineC:
			if _, err := e.ExpireDue(ctx); err != nil {
				log.Error("deadline expiry failed", slog.String("error", err.Error()))
			}
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

func (e *Engine) emit(ctx context.Context, eventType string, taskID int64, at time.Time, payload any) {
	event, err := events.NewLifecycleEvent(eventType, taskID, at, payload)
	if err == nil {
		err = e.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, e.logger).Warn("failed to emit lifecycle event",
			slog.String("event_type", eventType),
			slog.Int64("task_id", taskID),
			slog.String("error", err.Error()))
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
