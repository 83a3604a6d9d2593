package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/events"
	"github.com/phrazzld/taskwatch/internal/notify"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/store"
)

// Report kinds, used in report.sent events and job names.
const (
	KindWeekly = "weekly"
	KindDaily  = "daily_bills"
	KindStats  = "stats"
)

// Service computes reports from the stores and delivers them through a sink.
type Service struct {
	tasks   store.TaskStore
	bills   store.BillStore
	sink    notify.Sink
	emitter events.EventEmitter
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates a report service. Dates are computed in loc.
func NewService(
	tasks store.TaskStore,
	bills store.BillStore,
	sink notify.Sink,
	emitter events.EventEmitter,
	loc *time.Location,
	logger *slog.Logger,
) *Service {
	if tasks == nil {
		panic("tasks cannot be nil")
	}
	if bills == nil {
		panic("bills cannot be nil")
	}
	if sink == nil {
		panic("sink cannot be nil")
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		tasks:   tasks,
		bills:   bills,
		sink:    sink,
		emitter: emitter,
		loc:     loc,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "report_service")),
	}
}

// WithClock returns a copy of the service that reads the time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// Location returns the zone reports are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// Weekly computes response times for tasks notified in the seven calendar
// days ending on the day containing today.
func (s *Service) Weekly(ctx context.Context, today time.Time) (WeeklySummary, error) {
	end := s.startOfDay(today).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -7)

	responded, err := s.tasks.ListResponded(ctx, start, end)
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("failed to list responded tasks: %w", err)
	}

	return WeeklySummary{
		From:          start.Format(domain.DateLayout),
		To:            end.AddDate(0, 0, -1).Format(domain.DateLayout),
		ResponseTimes: AggregateResponseTimes(responded, s.loc),
	}, nil
}

// DailyBills summarizes the bill entries recorded on the day containing day,
// compared with the day before.
func (s *Service) DailyBills(ctx context.Context, day time.Time) (BillsSummary, error) {
	start := s.startOfDay(day)
	date := start.Format(domain.DateLayout)
	prev := start.AddDate(0, 0, -1).Format(domain.DateLayout)

	today, err := s.bills.ListByDate(ctx, date)
	if err != nil {
		return BillsSummary{}, fmt.Errorf("failed to list bills for %s: %w", date, err)
	}
	yesterday, err := s.bills.ListByDate(ctx, prev)
	if err != nil {
		return BillsSummary{}, fmt.Errorf("failed to list bills for %s: %w", prev, err)
	}
	return SummarizeBills(date, today, yesterday), nil
}

// Stats returns the all-time completion statistics.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	completed, missed, err := s.tasks.CountTerminal(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count terminal tasks: %w", err)
	}
	return NewStats(completed, missed), nil
}

// SendWeekly delivers this week's report: the trend chart followed by the
// digest, or a single notice when there is no data.
func (s *Service) SendWeekly(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	summary, err := s.Weekly(ctx, s.now())
	if err != nil {
		log.Error("failed to compute weekly report", slog.String("error", err.Error()))
		return err
	}
	for _, w := range summary.Warnings {
		log.Warn("weekly report anomaly", slog.String("warning", w))
	}

	if !summary.Empty() {
		chart, err := RenderTrend(summary.Days)
		if err != nil {
			return fmt.Errorf("failed to render trend chart: %w", err)
		}
		if err := s.sink.Send(ctx, notify.Message{
			Topic:     notify.TopicResults,
			Text:      chartTitle,
			Photo:     chart,
			PhotoName: "response_time_trend.png",
		}); err != nil {
			return fmt.Errorf("failed to send trend chart: %w", err)
		}
	}

	if err := s.sink.Send(ctx, notify.Message{Topic: notify.TopicResults, Text: WeeklyDigest(summary)}); err != nil {
		return fmt.Errorf("failed to send weekly digest: %w", err)
	}

	s.sent(ctx, KindWeekly)
	log.Info("weekly report sent",
		slog.Int("responses", summary.Count),
		slog.Int("warnings", len(summary.Warnings)))
	return nil
}

// SendDailyBills delivers today's bills digest.
func (s *Service) SendDailyBills(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	summary, err := s.DailyBills(ctx, s.now())
	if err != nil {
		log.Error("failed to compute daily bills report", slog.String("error", err.Error()))
		return err
	}

	if err := s.sink.Send(ctx, notify.Message{Topic: notify.TopicBills, Text: BillsDigest(summary)}); err != nil {
		return fmt.Errorf("failed to send bills digest: %w", err)
	}

	s.sent(ctx, KindDaily)
	log.Info("daily bills report sent",
		slog.String("date", summary.Date),
		slog.Int("entries", len(summary.Entries)))
	return nil
}

// SendStats delivers the completion statistics.
func (s *Service) SendStats(ctx context.Context) error {
	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	if err := s.sink.Send(ctx, notify.Message{Topic: notify.TopicResults, Text: StatsDigest(stats)}); err != nil {
		return fmt.Errorf("failed to send statistics: %w", err)
	}
	s.sent(ctx, KindStats)
	return nil
}

// Send delivers the report of the given kind.
func (s *Service) Send(ctx context.Context, kind string) error {
	switch kind {
	case KindWeekly:
		return s.SendWeekly(ctx)
	case KindDaily:
		return s.SendDailyBills(ctx)
	case KindStats:
		return s.SendStats(ctx)
	}
	return domain.NewValidationError("kind", fmt.Sprintf("unknown report %q", kind), domain.ErrValidation)
}

func (s *Service) sent(ctx context.Context, kind string) {
	event, err := events.NewLifecycleEvent(events.TypeReportSent, 0, s.now(), map[string]string{"kind": kind})
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit report event",
			slog.String("kind", kind),
			slog.String("error", err.Error()))
	}
}
