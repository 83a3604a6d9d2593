package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
)

// Lifecycle is the reminder and deadline loop.
type Lifecycle interface {
	Run(ctx context.Context) error
}

// Reports delivers the periodic reports.
type Reports interface {
	SendWeekly(ctx context.Context) error
	SendDailyBills(ctx context.Context) error
}

// Config holds the schedule of the report loops.
type Config struct {
	// Location is the zone the daily report time is read in.
	Location *time.Location
	// DailyAt is the time of day of the bills report.
	DailyAt domain.TimeOfDay
	// WeeklyPeriod separates weekly reports; the first is one period after
	// the runner starts.
	WeeklyPeriod time.Duration
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Runner runs each periodic concern in its own goroutine until its context
// is cancelled. A failed iteration is logged and the loop carries on.
type Runner struct {
	lifecycle Lifecycle
	reports   Reports
	cfg       Config
	wait      func(ctx context.Context, d time.Duration) bool
	wg        sync.WaitGroup
	logger    *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(lifecycle Lifecycle, reports Reports, cfg Config, logger *slog.Logger) *Runner {
	if lifecycle == nil {
		panic("lifecycle cannot be nil")
	}
	if reports == nil {
		panic("reports cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.WeeklyPeriod <= 0 {
		cfg.WeeklyPeriod = 7 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Runner{
		lifecycle: lifecycle,
		reports:   reports,
		cfg:       cfg,
		wait:      sleep,
		logger:    logger.With(slog.String("component", "schedule_runner")),
	}
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Start launches the loops. Call Wait after cancelling ctx.
func (r *Runner) Start(ctx context.Context) {
	ctx = logger.WithLogger(ctx, r.logger)
	started := r.cfg.Now()

	r.wg.Add(3)
	go func() {
		defer r.wg.Done()
		if err := r.lifecycle.Run(ctx); err != nil {
			r.logger.Error("lifecycle loop exited", slog.String("error", err.Error()))
		}
	}()
	go func() {
		defer r.wg.Done()
		r.loop(ctx, "weekly_report", func(now time.Time) time.Time {
			return NextPeriodic(started, now, r.cfg.WeeklyPeriod)
		}, r.reports.SendWeekly)
	}()
	go func() {
		defer r.wg.Done()
		r.loop(ctx, "daily_bills_report", func(now time.Time) time.Time {
			return NextDaily(now, r.cfg.DailyAt, r.cfg.Location)
		}, r.reports.SendDailyBills)
	}()

	r.logger.Info("schedule started",
		slog.Time("weekly_first", started.Add(r.cfg.WeeklyPeriod)),
		slog.String("daily_at", r.cfg.DailyAt.String()))
}

// Wait blocks until every loop has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, name string, next func(time.Time) time.Time, fire func(context.Context) error) {
	log := r.logger.With(slog.String("loop", name))

	at := next(r.cfg.Now())
	for {
		log.Debug("next run scheduled", slog.Time("at", at))

		if !r.wait(ctx, max(at.Sub(r.cfg.Now()), 0)) {
			log.Debug("loop stopped")
			return
		}
		if err := fire(ctx); err != nil {
			log.Error("scheduled report failed", slog.String("error", err.Error()))
		}

		// Never earlier than the run just fired, even if the wall clock
		// stepped back while it ran.
		from := r.cfg.Now()
		if from.Before(at) {
			from = at
		}
		at = next(from)
	}
}
