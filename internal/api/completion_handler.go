package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskwatch/internal/api/shared"
	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/lifecycle"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
)

// IdempotencyHeader names the request header used to deduplicate completions.
const IdempotencyHeader = "Idempotency-Key"

const completionScope = "completion"

// Completer applies completion evidence and attribution replies.
type Completer interface {
	Complete(ctx context.Context, sig lifecycle.CompletionSignal) (*lifecycle.CompletionResult, error)
	Attribute(ctx context.Context, conversationID, text string) (*domain.Task, error)
}

// Deduper records idempotency keys. Add reports false if the key was seen.
type Deduper interface {
	Add(ctx context.Context, scope, key string) (bool, error)
	Remove(ctx context.Context, scope, key string) error
}

// CompletionRequest is the body of POST /api/completions.
type CompletionRequest struct {
	ConversationID string     `json:"conversation_id" validate:"max=128"`
	Evidence       string     `json:"evidence"        validate:"required,max=512"`
	TaskID         int64      `json:"task_id"         validate:"gte=0"`
	ReceivedAt     *time.Time `json:"received_at"`
}

// AttributionRequest is the body of POST /api/completions/attribution.
type AttributionRequest struct {
	ConversationID string `json:"conversation_id" validate:"required,max=128"`
	Text           string `json:"text"            validate:"required,max=512"`
}

// AttributionResponse is the task created from held evidence.
type AttributionResponse struct {
	Task  *domain.Task `json:"task"`
	Reply string       `json:"reply"`
}

// CompletionHandler handles completion evidence and orphan attribution.
type CompletionHandler struct {
	completer Completer
	deduper   Deduper
	logger    *slog.Logger
}

// NewCompletionHandler creates a CompletionHandler. A nil deduper disables
// Idempotency-Key checks.
func NewCompletionHandler(completer Completer, deduper Deduper, logger *slog.Logger) *CompletionHandler {
	if completer == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("completer cannot be nil for CompletionHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CompletionHandler")
	}
	return &CompletionHandler{
		completer: completer,
		deduper:   deduper,
		logger:    logger.With(slog.String("component", "completion_handler")),
	}
}

// Complete handles POST /api/completions. Outcomes such as an expired window
// are returned with 200; only invalid input and failures are errors.
func (h *CompletionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CompletionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	key := r.Header.Get(IdempotencyHeader)
	if h.deduper != nil && key != "" {
		added, err := h.deduper.Add(r.Context(), completionScope, key)
		if err != nil {
			HandleAPIError(w, r, err, "Failed to record completion")
			return
		}
		if !added {
			log.Info("duplicate completion request", slog.String("idempotency_key", key))
			HandleAPIError(w, r, ErrDuplicateRequest, "")
			return
		}
	}

	sig := lifecycle.CompletionSignal{
		ConversationID: req.ConversationID,
		TaskID:         req.TaskID,
		Evidence:       req.Evidence,
	}
	if req.ReceivedAt != nil {
		sig.ReceivedAt = *req.ReceivedAt
	}

	result, err := h.completer.Complete(r.Context(), sig)
	if err != nil {
		if h.deduper != nil && key != "" {
			// Let the client retry a request that was not applied.
			if rmErr := h.deduper.Remove(r.Context(), completionScope, key); rmErr != nil {
				log.Warn("failed to release idempotency key", slog.String("error", rmErr.Error()))
			}
		}
		HandleAPIError(w, r, err, "Failed to record completion")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Attribute handles POST /api/completions/attribution: the user's reply
// naming the task for evidence that arrived with no open task.
func (h *CompletionHandler) Attribute(w http.ResponseWriter, r *http.Request) {
	var req AttributionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.completer.Attribute(r.Context(), req.ConversationID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AttributionResponse{
		Task:  task,
		Reply: fmt.Sprintf("Task %q at %s recorded as completed!", task.Description, task.ScheduledTime),
	})
}
