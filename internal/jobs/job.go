package jobs

import (
	"context"

	"github.com/google/uuid"
)

// Status represents the current state of a job.
type Status string

// Possible job status values
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job represents a unit of background work to be processed.
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Type returns the job type identifier
	Type() string

	// Execute runs the job logic
	Execute(ctx context.Context) error
}

// QueueReader provides read-only access to the job channel
// allowing workers to consume jobs without the ability to enqueue.
type QueueReader interface {
	// Channel returns a read-only channel for consuming jobs
	Channel() <-chan Job
}

// QueueWriter provides write access to the job queue.
type QueueWriter interface {
	// Enqueue adds a job to the queue for processing.
	// Returns an error if the queue is full or closed.
	Enqueue(job Job) error

	// Close closes the queue, preventing further submission
	Close()
}
