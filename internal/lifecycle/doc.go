// Package lifecycle implements the task lifecycle engine.
//
// A task is created pending, becomes notified when its reminder is delivered,
// and ends either completed (evidence arrived within the response window) or
// missed (the window lapsed). The engine polls for due reminders, keeps a
// min-heap of response-window deadlines, arbitrates completions against
// expiry through the store's conditional transitions, and holds evidence that
// arrives with no open task until the submitter names the task.
package lifecycle
