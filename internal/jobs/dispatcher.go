package jobs

import (
	"log/slog"
)

// Dispatcher records a job as pending and then enqueues it.
type Dispatcher struct {
	queue    QueueWriter
	statuses *StatusStore
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. statuses may be nil.
func NewDispatcher(queue QueueWriter, statuses *StatusStore, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{queue: queue, statuses: statuses, logger: logger}
}

// Submit enqueues job. When the queue rejects it the queue's error is
// returned and the job is recorded as failed.
func (d *Dispatcher) Submit(job Job) error {
	if d.statuses != nil {
		d.statuses.Update(job, StatusPending, "")
	}
	if err := d.queue.Enqueue(job); err != nil {
		if d.statuses != nil {
			d.statuses.Update(job, StatusFailed, err.Error())
		}
		d.logger.Warn("job rejected",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"error", err)
		return err
	}
	return nil
}

// Statuses returns the status store, or nil when none is tracked.
func (d *Dispatcher) Statuses() *StatusStore {
	return d.statuses
}
