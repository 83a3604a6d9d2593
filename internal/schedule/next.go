package schedule

import (
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
)

// NextDaily returns the first instant strictly after now whose time of day in
// loc is at.
func NextDaily(now time.Time, at domain.TimeOfDay, loc *time.Location) time.Time {
	local := now.In(loc)
	next := at.On(local)
	if !next.After(local) {
		y, m, d := local.Date()
		next = at.On(time.Date(y, m, d+1, 0, 0, 0, 0, loc))
	}
	return next
}

// NextPeriodic returns the first instant strictly after now of the series
// start+period, start+2*period, ...
func NextPeriodic(start, now time.Time, period time.Duration) time.Time {
	next := start.Add(period)
	if next.After(now) {
		return next
	}
	elapsed := now.Sub(start)
	n := elapsed/period + 1
	return start.Add(n * period)
}
