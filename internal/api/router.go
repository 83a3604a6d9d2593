package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/taskwatch/internal/api/middleware"
	"github.com/phrazzld/taskwatch/internal/api/shared"
)

// Handlers groups the route handlers mounted by NewRouter.
type Handlers struct {
	Tasks       *TaskHandler
	Completions *CompletionHandler
	Bills       *BillHandler
	Reports     *ReportHandler

	// HealthCheck, when set, is consulted by GET /health.
	HealthCheck func(ctx context.Context) error
}

// NewRouter mounts the API routes. Everything under /api requires a bearer token.
func NewRouter(h Handlers, auth *apiMiddleware.AuthMiddleware, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Post("/tasks", h.Tasks.CreateTasks)
		r.Get("/tasks/search", h.Tasks.SearchTasks)
		r.Get("/tasks/{id}", h.Tasks.GetTask)

		r.Post("/completions", h.Completions.Complete)
		r.Post("/completions/attribution", h.Completions.Attribute)

		r.Post("/bills", h.Bills.CreateBill)

		r.Post("/reports/{kind}", h.Reports.RequestReport)
		r.Get("/jobs/{id}", h.Reports.GetJob)
		r.Get("/stats", h.Reports.GetStats)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if h.HealthCheck != nil {
			if err := h.HealthCheck(r.Context()); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Unavailable", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
