package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
)

// MaxReasonableMinutes caps a single response time. Larger values are kept in
// the count at the cap and reported as warnings.
const MaxReasonableMinutes = 1440.0

// CompletionRate returns completed/(completed+missed)*100, or 0 when no task
// has reached a terminal state.
func CompletionRate(completed, missed int) float64 {
	total := completed + missed
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// DayResponse is the response-time summary for one notification date.
type DayResponse struct {
	Date        string  `json:"date"`
	Count       int     `json:"count"`
	MeanMinutes float64 `json:"mean_minutes"`
}

// ResponseTimes is a response-time distribution grouped by notification date.
type ResponseTimes struct {
	Days        []DayResponse `json:"days"`
	Count       int           `json:"count"`
	MeanMinutes float64       `json:"mean_minutes"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// Empty reports whether no valid response time was found.
func (r ResponseTimes) Empty() bool {
	return r.Count == 0
}

// AggregateResponseTimes groups the response times of tasks by the date they
// were notified in loc. Tasks without both timestamps, or whose completion is
// not after the notification, are excluded. Values above MaxReasonableMinutes
// are capped and produce a warning.
func AggregateResponseTimes(tasks []*domain.Task, loc *time.Location) ResponseTimes {
	if loc == nil {
		loc = time.UTC
	}

	byDate := make(map[string][]float64)
	var warnings []string
	for _, task := range tasks {
		elapsed, ok := task.ResponseTime()
		if !ok {
			continue
		}
		date := task.NotifiedAt.In(loc).Format(domain.DateLayout)
		minutes := elapsed.Minutes()
		if minutes > MaxReasonableMinutes {
			warnings = append(warnings, fmt.Sprintf(
				"Unrealistically large response time for %s: %.1f min (capped at %.0f min)",
				date, minutes, MaxReasonableMinutes))
			minutes = MaxReasonableMinutes
		}
		byDate[date] = append(byDate[date], minutes)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	result := ResponseTimes{Days: make([]DayResponse, 0, len(dates)), Warnings: warnings}
	var total float64
	for _, date := range dates {
		values := byDate[date]
		var sum float64
		for _, v := range values {
			sum += v
		}
		total += sum
		result.Count += len(values)
		result.Days = append(result.Days, DayResponse{
			Date:        date,
			Count:       len(values),
			MeanMinutes: sum / float64(len(values)),
		})
	}
	if result.Count > 0 {
		result.MeanMinutes = total / float64(result.Count)
	}
	return result
}

// FormatMinutes renders a duration in minutes as minutes below an hour, hours
// below a day, and days otherwise.
func FormatMinutes(minutes float64) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%.1f min", minutes)
	case minutes < MaxReasonableMinutes:
		return fmt.Sprintf("%.1f hours", minutes/60)
	default:
		return fmt.Sprintf("%.1f days", minutes/MaxReasonableMinutes)
	}
}
