package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
)

var tashkent = time.FixedZone("UTC+5", 5*60*60)

func TestNextDaily(t *testing.T) {
	at := domain.MustParseTimeOfDay("22:00")

	testCases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2024, 5, 1, 9, 0, 0, 0, tashkent),
			want: time.Date(2024, 5, 1, 22, 0, 0, 0, tashkent),
		},
		{
			name: "exactly at the time moves to tomorrow",
			now:  time.Date(2024, 5, 1, 22, 0, 0, 0, tashkent),
			want: time.Date(2024, 5, 2, 22, 0, 0, 0, tashkent),
		},
		{
			name: "after the time",
			now:  time.Date(2024, 5, 31, 23, 30, 0, 0, tashkent),
			want: time.Date(2024, 6, 1, 22, 0, 0, 0, tashkent),
		},
		{
			name: "clock in another zone",
			now:  time.Date(2024, 5, 1, 17, 30, 0, 0, time.UTC), // 22:30 in Tashkent
			want: time.Date(2024, 5, 2, 22, 0, 0, 0, tashkent),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextDaily(tc.now, at, tashkent)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestNextPeriodic(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 15, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	assert.Equal(t, start.Add(week), NextPeriodic(start, start, week))
	assert.Equal(t, start.Add(week), NextPeriodic(start, start.Add(3*24*time.Hour), week))
	assert.Equal(t, start.Add(2*week), NextPeriodic(start, start.Add(week), week))
	assert.Equal(t, start.Add(3*week), NextPeriodic(start, start.Add(2*week+time.Minute), week))
}

type stubLifecycle struct {
	ran chan struct{}
}

func (s *stubLifecycle) Run(ctx context.Context) error {
	close(s.ran)
	<-ctx.Done()
	return nil
}

type stubReports struct {
	mu     sync.Mutex
	weekly int
	daily  int
}

func (s *stubReports) SendWeekly(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weekly++
	return nil
}

func (s *stubReports) SendDailyBills(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily++
	return errors.New("sink down")
}

func TestRunnerSchedulesLoops(t *testing.T) {
	_, log := logger.NewTestLogger(t)
	started := time.Date(2024, 5, 1, 8, 15, 0, 0, tashkent)

	var clockMu sync.Mutex
	now := started
	lifecycle := &stubLifecycle{ran: make(chan struct{})}
	reports := &stubReports{}

	r := NewRunner(lifecycle, reports, Config{
		Location: tashkent,
		DailyAt:  domain.MustParseTimeOfDay("22:00"),
		Now: func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			return now
		},
	}, log)

	// the clock never moves, so each wait is measured from startup; let
	// everything inside 15 days through
	var waitMu sync.Mutex
	waits := map[time.Duration]int{}
	r.wait = func(ctx context.Context, d time.Duration) bool {
		waitMu.Lock()
		defer waitMu.Unlock()
		waits[d]++
		return d < 15*24*time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	<-lifecycle.ran

	require.Eventually(t, func() bool {
		reports.mu.Lock()
		defer reports.mu.Unlock()
		return reports.weekly == 2 && reports.daily == 15
	}, time.Second, 5*time.Millisecond)

	cancel()
	r.Wait()

	waitMu.Lock()
	defer waitMu.Unlock()
	assert.Equal(t, 1, waits[7*24*time.Hour], "weekly loop waits one week from startup")
	assert.Equal(t, 1, waits[14*24*time.Hour])
	assert.Equal(t, 1, waits[21*24*time.Hour])
	assert.Equal(t, 1, waits[13*time.Hour+45*time.Minute], "daily loop waits until 22:00")
	assert.Equal(t, 1, waits[37*time.Hour+45*time.Minute], "then 22:00 the next day")
}

func TestLoopDoesNotRepeatWhenClockStepsBack(t *testing.T) {
	_, log := logger.NewTestLogger(t)

	var clockMu sync.Mutex
	now := time.Date(2024, 5, 1, 21, 59, 0, 0, tashkent)
	setNow := func(t time.Time) {
		clockMu.Lock()
		defer clockMu.Unlock()
		now = t
	}

	r := NewRunner(&stubLifecycle{ran: make(chan struct{})}, &stubReports{}, Config{
		Location: tashkent,
		DailyAt:  domain.MustParseTimeOfDay("22:00"),
		Now: func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			return now
		},
	}, log)

	var waits []time.Duration
	r.wait = func(_ context.Context, d time.Duration) bool {
		waits = append(waits, d)
		if len(waits) == 1 {
			setNow(time.Date(2024, 5, 1, 22, 0, 0, 0, tashkent))
			return true
		}
		return false
	}

	fired := 0
	r.loop(context.Background(), "daily_bills_report", func(from time.Time) time.Time {
		return NextDaily(from, r.cfg.DailyAt, r.cfg.Location)
	}, func(context.Context) error {
		fired++
		// NTP pulls the wall clock back two seconds during the run
		setNow(time.Date(2024, 5, 1, 21, 59, 58, 0, tashkent))
		return nil
	})

	assert.Equal(t, 1, fired)
	require.Len(t, waits, 2)
	assert.Equal(t, time.Minute, waits[0])
	assert.Equal(t, 24*time.Hour+2*time.Second, waits[1], "next run is tomorrow's 22:00")
}
