package domain

import (
	"fmt"
	"sort"
	"strings"
)

// TaskSpec is a parsed "description: HH:MM" pair, not yet persisted.
type TaskSpec struct {
	Description string    `json:"description"`
	At          TimeOfDay `json:"scheduled_time"`
}

// ParseTaskLine parses one "description: HH:MM" line. The line is split at its
// first colon; the remainder must be a valid time-of-day.
func ParseTaskLine(line string) (TaskSpec, error) {
	desc, rest, ok := strings.Cut(line, ":")
	if !ok {
		return TaskSpec{}, NewValidationError("line", fmt.Sprintf("%q has no ':' separator", line), ErrInvalidFormat)
	}

	desc = strings.TrimSpace(desc)
	if desc == "" {
		return TaskSpec{}, NewValidationError("description", "cannot be empty", ErrEmptyContent)
	}

	at, err := ParseTimeOfDay(rest)
	if err != nil {
		return TaskSpec{}, err
	}

	return TaskSpec{Description: desc, At: at}, nil
}

// ParseTaskLines parses newline-separated task lines. Unparseable lines are
// skipped and returned as rejected; the valid specs are sorted ascending by
// time-of-day, keeping input order among equal times.
// ErrNoValidTasks is returned when nothing parses.
func ParseTaskLines(text string) (specs []TaskSpec, rejected []string, err error) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		spec, perr := ParseTaskLine(line)
		if perr != nil {
			rejected = append(rejected, line)
			continue
		}
		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, rejected, ErrNoValidTasks
	}

	sort.SliceStable(specs, func(i, j int) bool {
		return specs[i].At.Before(specs[j].At)
	})

	return specs, rejected, nil
}
