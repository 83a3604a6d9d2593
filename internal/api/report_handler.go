package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskwatch/internal/api/shared"
	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/jobs"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/report"
)

// Reports is the report service as seen by the API.
type Reports interface {
	jobs.ReportSender
	Stats(ctx context.Context) (report.Stats, error)
}

// JobSubmitter accepts background jobs and exposes their status.
type JobSubmitter interface {
	Submit(job jobs.Job) error
	Statuses() *jobs.StatusStore
}

// ReportAcceptedResponse is returned when a report job is queued.
type ReportAcceptedResponse struct {
	JobID  uuid.UUID   `json:"job_id"`
	Kind   string      `json:"kind"`
	Status jobs.Status `json:"status"`
}

// StatsResponse carries task statistics and their digest text.
type StatsResponse struct {
	report.Stats
	Reply string `json:"reply"`
}

// reportKinds maps the public path segment to the report kind.
var reportKinds = map[string]string{
	"weekly": report.KindWeekly,
	"daily":  report.KindDaily,
	"stats":  report.KindStats,
}

// ReportHandler queues on-demand reports and serves statistics.
type ReportHandler struct {
	reports Reports
	jobs    JobSubmitter
	logger  *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports Reports, submitter JobSubmitter, logger *slog.Logger) *ReportHandler {
	if reports == nil || submitter == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("reports and job submitter cannot be nil for ReportHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ReportHandler")
	}
	return &ReportHandler{
		reports: reports,
		jobs:    submitter,
		logger:  logger.With(slog.String("component", "report_handler")),
	}
}

// RequestReport handles POST /api/reports/{kind}. The report is generated
// by the worker pool and delivered through the notification sink.
func (h *ReportHandler) RequestReport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	kind, ok := reportKinds[chi.URLParam(r, "kind")]
	if !ok {
		HandleAPIError(w, r, domain.NewValidationError("kind", "must be weekly, daily or stats", domain.ErrValidation), "")
		return
	}

	job := jobs.NewReportJob(kind, h.reports)
	if err := h.jobs.Submit(job); err != nil {
		HandleAPIError(w, r, err, "Failed to queue report")
		return
	}

	log.Info("report queued", slog.String("kind", kind), slog.String("job_id", job.ID().String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, ReportAcceptedResponse{
		JobID:  job.ID(),
		Kind:   kind,
		Status: jobs.StatusPending,
	})
}

// GetJob handles GET /api/jobs/{id}.
func (h *ReportHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	record, ok := h.jobs.Statuses().Get(id)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, record)
}

// GetStats handles GET /api/stats.
func (h *ReportHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{Stats: stats, Reply: report.StatsDigest(stats)})
}
