package jobs

import (
	"context"

	"github.com/google/uuid"
)

// JobTypeReport is the type of jobs that deliver a report.
const JobTypeReport = "report"

// ReportSender delivers a report of the named kind.
type ReportSender interface {
	Send(ctx context.Context, kind string) error
}

// ReportJob delivers one report through a ReportSender.
type ReportJob struct {
	id     uuid.UUID
	kind   string
	sender ReportSender
}

var _ Job = (*ReportJob)(nil)

// NewReportJob creates a job that sends the report of the given kind.
func NewReportJob(kind string, sender ReportSender) *ReportJob {
	return &ReportJob{id: uuid.New(), kind: kind, sender: sender}
}

// ID implements Job.
func (j *ReportJob) ID() uuid.UUID { return j.id }

// Type implements Job.
func (j *ReportJob) Type() string { return JobTypeReport + ":" + j.kind }

// Kind returns the report kind.
func (j *ReportJob) Kind() string { return j.kind }

// Execute implements Job.
func (j *ReportJob) Execute(ctx context.Context) error {
	return j.sender.Send(ctx, j.kind)
}
