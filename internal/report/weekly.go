package report

import (
	"fmt"
	"strings"
)

// WeeklySummary is the response-time report for the seven days ending on To.
type WeeklySummary struct {
	From string `json:"from"`
	To   string `json:"to"`
	ResponseTimes
}

// Display renders the overall mean for people.
func (w WeeklySummary) Display() string {
	return FormatMinutes(w.MeanMinutes)
}

// WeeklyDigest renders the summary as message text.
func WeeklyDigest(w WeeklySummary) string {
	if w.Empty() {
		return "No response time data found for the last 7 days."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly Report (%s to %s)\n", w.From, w.To)
	fmt.Fprintf(&b, "Avg Response Time: %s\n", w.Display())
	fmt.Fprintf(&b, "Total Valid Responses: %d\n", w.Count)
	fmt.Fprintf(&b, "Raw Average (minutes): %.1f min", w.MeanMinutes)
	for _, d := range w.Days {
		fmt.Fprintf(&b, "\n- %s: %s (%d)", d.Date, FormatMinutes(d.MeanMinutes), d.Count)
	}
	if len(w.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		b.WriteString(strings.Join(w.Warnings, "\n"))
	}
	return b.String()
}
