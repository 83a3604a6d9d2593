package report_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/events"
	"github.com/phrazzld/taskwatch/internal/mocks"
	"github.com/phrazzld/taskwatch/internal/notify"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/report"
)

var tashkent = time.FixedZone("UTC+5", 5*60*60)

// now is 2024-05-07 23:00 in Tashkent.
var now = time.Date(2024, 5, 7, 18, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *report.Service
	tasks *mocks.MockTaskStore
	bills *mocks.MockBillStore
	sink  *mocks.RecordingSink
	sent  []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, log := logger.NewTestLogger(t)

	f := &fixture{
		tasks: mocks.NewMockTaskStore(),
		bills: mocks.NewMockBillStore(),
		sink:  &mocks.RecordingSink{},
	}
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, e *events.LifecycleEvent) error {
		var payload map[string]string
		require.NoError(t, e.UnmarshalPayload(&payload))
		f.sent = append(f.sent, payload["kind"])
		return nil
	}))

	f.svc = report.NewService(f.tasks, f.bills, f.sink, emitter, tashkent, log).
		WithClock(func() time.Time { return now })
	return f
}

func (f *fixture) completed(notified time.Time, after time.Duration) {
	c := notified.Add(after)
	ev := "video"
	f.tasks.Put(&domain.Task{
		Description: "Run",
		State:       domain.TaskStateCompleted,
		NotifiedAt:  &notified,
		CompletedAt: &c,
		Evidence:    &ev,
	})
}

func TestWeeklyWindow(t *testing.T) {
	f := newFixture(t)

	// 2024-05-01 00:30 Tashkent is the first instant of the window
	f.completed(time.Date(2024, 4, 30, 19, 30, 0, 0, time.UTC), 10*time.Minute)
	// 2024-04-30 23:59 Tashkent is outside it
	f.completed(time.Date(2024, 4, 30, 18, 59, 0, 0, time.UTC), 10*time.Minute)
	// 2024-05-07 22:00 Tashkent is inside
	f.completed(time.Date(2024, 5, 7, 17, 0, 0, 0, time.UTC), 20*time.Minute)

	summary, err := f.svc.Weekly(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-01", summary.From)
	assert.Equal(t, "2024-05-07", summary.To)
	assert.Equal(t, 2, summary.Count)
	require.Len(t, summary.Days, 2)
	assert.Equal(t, "2024-05-01", summary.Days[0].Date)
	assert.Equal(t, "2024-05-07", summary.Days[1].Date)
	assert.InDelta(t, 15, summary.MeanMinutes, 1e-9)
	assert.Equal(t, "15.0 min", summary.Display())
}

func TestSendWeekly(t *testing.T) {
	t.Run("chart then digest", func(t *testing.T) {
		f := newFixture(t)
		f.completed(time.Date(2024, 5, 6, 2, 0, 0, 0, time.UTC), 40*time.Minute)
		f.completed(time.Date(2024, 5, 5, 2, 0, 0, 0, time.UTC), 26*time.Hour)

		require.NoError(t, f.svc.SendWeekly(context.Background()))

		msgs := f.sink.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, notify.TopicResults, msgs[0].Topic)
		assert.NotEmpty(t, msgs[0].Photo)
		assert.Equal(t, "response_time_trend.png", msgs[0].PhotoName)
		assert.Equal(t, "Task Response Time Trend", msgs[0].Text)

		digest := msgs[1].Text
		assert.True(t, strings.HasPrefix(digest, "Weekly Report (2024-05-01 to 2024-05-07)"))
		assert.Contains(t, digest, "Avg Response Time: 12.3 hours")
		assert.Contains(t, digest, "Total Valid Responses: 2")
		assert.Contains(t, digest, "Raw Average (minutes): 740.0 min")
		assert.Contains(t, digest, "Warnings:\nUnrealistically large response time for 2024-05-05: 1560.0 min (capped at 1440 min)")
		assert.Equal(t, []string{report.KindWeekly}, f.sent)
	})

	t.Run("no data", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.svc.SendWeekly(context.Background()))
		assert.Equal(t, []string{"No response time data found for the last 7 days."}, f.sink.Texts())
		assert.Empty(t, f.sink.Messages()[0].Photo)
	})

	t.Run("sink failure", func(t *testing.T) {
		f := newFixture(t)
		f.sink.SendFn = func(context.Context, notify.Message) error { return notify.ErrDeliveryFailed }

		err := f.svc.SendWeekly(context.Background())
		require.ErrorIs(t, err, notify.ErrDeliveryFailed)
		assert.Empty(t, f.sent)
	})
}

func TestSendDailyBills(t *testing.T) {
	ctx := context.Background()

	t.Run("digest for today in zone", func(t *testing.T) {
		f := newFixture(t)
		for _, e := range []*domain.BillEntry{
			mustBill(t, "2024-05-07", domain.BillTypeExpense, 20, "groceries", "18:00"),
			mustBill(t, "2024-05-07", domain.BillTypeIncome, 50, "freelance", "10:00"),
			mustBill(t, "2024-05-06", domain.BillTypeExpense, 35, "dinner", "20:00"),
			mustBill(t, "2024-05-08", domain.BillTypeExpense, 99, "tomorrow", "08:00"),
		} {
			_, err := f.bills.Create(ctx, e)
			require.NoError(t, err)
		}

		require.NoError(t, f.svc.SendDailyBills(ctx))

		msgs := f.sink.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, notify.TopicBills, msgs[0].Topic)
		assert.Contains(t, msgs[0].Text, "Daily Bills Report for 2024-05-07")
		assert.Contains(t, msgs[0].Text, "Balance Left: $30.00")
		assert.Contains(t, msgs[0].Text, "Productivity Compared to Yesterday: more productive")
		assert.True(t, strings.HasSuffix(msgs[0].Text,
			"- Income: $50.00 at 10:00 - freelance\n- Expense: $20.00 at 18:00 - groceries"))
		assert.Equal(t, []string{report.KindDaily}, f.sent)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.bills.ListByDateError = errors.New("connection refused")

		require.Error(t, f.svc.SendDailyBills(ctx))
		assert.Empty(t, f.sink.Messages())
	})
}

func TestSendByKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.completed(time.Date(2024, 5, 6, 2, 0, 0, 0, time.UTC), 5*time.Minute)
	f.tasks.Put(&domain.Task{Description: "Skip", State: domain.TaskStateMissed})

	require.NoError(t, f.svc.Send(ctx, report.KindStats))
	assert.Equal(t, []string{"Task Statistics\nCompleted: 1\nMissed: 1\nCompletion Rate: 50.0%"}, f.sink.Texts())

	err := f.svc.Send(ctx, "monthly")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func mustBill(t *testing.T, date string, typ domain.BillType, amount float64, desc, at string) *domain.BillEntry {
	t.Helper()
	entry, err := domain.NewBillEntry(date, typ, amount, desc, domain.MustParseTimeOfDay(at))
	require.NoError(t, err)
	return entry
}
