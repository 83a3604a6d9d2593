package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
)

const displayLayout = "2006-01-02 15:04"

func formatStamp(t *time.Time, loc *time.Location, missing string) string {
	if t == nil {
		return missing
	}
	return t.In(loc).Format(displayLayout)
}

// FormatTaskDetail renders every field of a task for display.
func FormatTaskDetail(task *domain.Task, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	video := "No video available"
	if task.Evidence != nil {
		video = *task.Evidence
	}

	return strings.Join([]string{
		"Task Details",
		fmt.Sprintf("ID: %d", task.ID),
		fmt.Sprintf("Activity: %s", task.Description),
		fmt.Sprintf("Time: %s", task.ScheduledTime),
		fmt.Sprintf("Status: %s", task.State),
		fmt.Sprintf("Notified At: %s", formatStamp(task.NotifiedAt, loc, "Not notified")),
		fmt.Sprintf("Completed At: %s", formatStamp(task.CompletedAt, loc, "Not completed")),
		fmt.Sprintf("Video: %s", video),
	}, "\n")
}

// FormatSearchResults renders matches as a numbered list of
// "description: notified time" lines. The numbers are 1-based positions.
func FormatSearchResults(tasks []*domain.Task, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	lines := make([]string, 0, len(tasks))
	for i, task := range tasks {
		lines = append(lines, fmt.Sprintf("%d. %s: %s",
			i+1, task.Description, formatStamp(task.NotifiedAt, loc, "not notified")))
	}
	return strings.Join(lines, "\n")
}

// Stats is the all-time task outcome summary.
type Stats struct {
	Completed      int     `json:"completed"`
	Missed         int     `json:"missed"`
	CompletionRate float64 `json:"completion_rate"`
}

// NewStats builds Stats from terminal counts.
func NewStats(completed, missed int) Stats {
	return Stats{Completed: completed, Missed: missed, CompletionRate: CompletionRate(completed, missed)}
}

// StatsDigest renders the statistics as message text.
func StatsDigest(s Stats) string {
	return fmt.Sprintf("Task Statistics\nCompleted: %d\nMissed: %d\nCompletion Rate: %.1f%%",
		s.Completed, s.Missed, s.CompletionRate)
}
