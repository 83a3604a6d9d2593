package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskwatch/internal/api/shared"
	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/report"
	"github.com/phrazzld/taskwatch/internal/store"
)

// TaskCreator stores parsed task lines as pending tasks.
type TaskCreator interface {
	CreateTasks(ctx context.Context, text string) ([]*domain.Task, []string, error)
}

// CreateTasksRequest is the body of POST /api/tasks: one "description: HH:MM"
// task per line.
type CreateTasksRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

// CreateTasksResponse lists the stored tasks and the lines that did not parse.
type CreateTasksResponse struct {
	Tasks    []*domain.Task `json:"tasks"`
	Rejected []string       `json:"rejected"`
	Reply    string         `json:"reply"`
}

// TaskDetailResponse is a single task with its rendered detail text.
type TaskDetailResponse struct {
	Task  *domain.Task `json:"task"`
	Reply string       `json:"reply"`
}

// SearchResponse carries search matches. Detail is set when exactly one task
// matched; otherwise Reply is a numbered list the user can select from.
type SearchResponse struct {
	Query  string         `json:"query"`
	Count  int            `json:"count"`
	Tasks  []*domain.Task `json:"tasks"`
	Detail *domain.Task   `json:"detail,omitempty"`
	Reply  string         `json:"reply"`
}

// TaskHandler handles task creation, lookup and search.
type TaskHandler struct {
	creator TaskCreator
	tasks   store.TaskStore
	loc     *time.Location
	logger  *slog.Logger
}

// NewTaskHandler creates a TaskHandler. Times in replies are rendered in loc.
func NewTaskHandler(creator TaskCreator, tasks store.TaskStore, loc *time.Location, logger *slog.Logger) *TaskHandler {
	if creator == nil || tasks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("task creator and store cannot be nil for TaskHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TaskHandler{
		creator: creator,
		tasks:   tasks,
		loc:     loc,
		logger:  logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTasks handles POST /api/tasks.
func (h *TaskHandler) CreateTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTasksRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	created, rejected, err := h.creator.CreateTasks(r.Context(), req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save tasks")
		return
	}
	if rejected == nil {
		rejected = []string{}
	}

	reply := "Tasks saved successfully!"
	if len(rejected) > 0 {
		reply = fmt.Sprintf("Saved %d tasks, skipped %d invalid lines. Use format: Task: HH:MM", len(created), len(rejected))
	}

	log.Debug("tasks saved", slog.Int("created", len(created)), slog.Int("rejected", len(rejected)))
	shared.RespondWithJSON(w, r, http.StatusCreated, CreateTasksResponse{
		Tasks:    created,
		Rejected: rejected,
		Reply:    reply,
	})
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathInt64(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskDetailResponse{
		Task:  task,
		Reply: report.FormatTaskDetail(task, h.loc),
	})
}

// SearchTasks handles GET /api/tasks/search?q=.
func (h *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	query := r.URL.Query().Get("q")
	filter, err := domain.ParseSearchQuery(query)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	matches, err := h.tasks.Search(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to search tasks")
		return
	}

	log.Debug("task search",
		slog.String("kind", filter.Kind.String()),
		slog.Int("matches", len(matches)))

	resp := SearchResponse{Query: query, Count: len(matches), Tasks: matches}
	switch len(matches) {
	case 0:
		resp.Tasks = []*domain.Task{}
		resp.Reply = "No tasks found matching your search."
	case 1:
		resp.Detail = matches[0]
		resp.Reply = report.FormatTaskDetail(matches[0], h.loc)
	default:
		resp.Reply = fmt.Sprintf("Found %d tasks:\n%s", len(matches), report.FormatSearchResults(matches, h.loc))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
