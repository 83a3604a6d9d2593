package lifecycle

import (
	"fmt"
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
)

// Outcome is the result of processing a completion signal.
type Outcome string

// Completion outcomes.
const (
	// OutcomeCompleted means the task moved to completed with the evidence.
	OutcomeCompleted Outcome = "completed"
	// OutcomeWindowExpired means the signal arrived after the response window;
	// the task is left for the deadline to mark missed.
	OutcomeWindowExpired Outcome = "window_expired"
	// OutcomeNeedsAttribution means no task was open; the evidence is held
	// until the submitter names the task.
	OutcomeNeedsAttribution Outcome = "needs_attribution"
	// OutcomeNotAwaiting means the target task has not been reminded yet.
	OutcomeNotAwaiting Outcome = "not_awaiting"
	// OutcomeAlreadyResolved means the task reached a terminal state first.
	OutcomeAlreadyResolved Outcome = "already_resolved"
)

// CompletionSignal is inbound evidence that a task was done.
type CompletionSignal struct {
	// ConversationID scopes held evidence when no task is open.
	ConversationID string
	// TaskID targets a specific task. Zero means the most recent open task.
	TaskID int64
	// Evidence is an opaque reference such as a video file ID.
	Evidence string
	// ReceivedAt is the arrival time; zero means now.
	ReceivedAt time.Time
}

// CompletionResult describes what Complete did.
type CompletionResult struct {
	Outcome Outcome      `json:"outcome"`
	Task    *domain.Task `json:"task,omitempty"`
	Reply   string       `json:"reply"`
}

func replyFor(outcome Outcome, window time.Duration) string {
	switch outcome {
	case OutcomeCompleted:
		return "Task marked as completed!"
	case OutcomeWindowExpired:
		return fmt.Sprintf("This task's %d-minute response window has expired.", int(window.Minutes()))
	case OutcomeNeedsAttribution:
		return "What is this video for? Use format: TaskName: HH:MM"
	case OutcomeNotAwaiting:
		return "No pending task found."
	case OutcomeAlreadyResolved:
		return "This task has already been resolved."
	}
	return ""
}
