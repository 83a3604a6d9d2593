package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskwatch/internal/api/shared"
	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/platform/logger"
	"github.com/phrazzld/taskwatch/internal/store"
)

// CreateBillRequest is the body of POST /api/bills. Date and Time default to
// the current local date and time-of-day.
type CreateBillRequest struct {
	Type        string  `json:"type"        validate:"required,oneof=income expense addition"`
	Amount      float64 `json:"amount"      validate:"required"`
	Description string  `json:"description" validate:"max=200"`
	Date        string  `json:"date"        validate:"omitempty,len=10"`
	Time        string  `json:"time"`
}

// BillHandler records bill entries for the daily digest.
type BillHandler struct {
	bills  store.BillStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewBillHandler creates a BillHandler. Defaults are taken in loc.
func NewBillHandler(bills store.BillStore, loc *time.Location, logger *slog.Logger) *BillHandler {
	if bills == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("bill store cannot be nil for BillHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BillHandler")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &BillHandler{
		bills:  bills,
		loc:    loc,
		now:    time.Now,
		logger: logger.With(slog.String("component", "bill_handler")),
	}
}

// WithClock replaces the clock used for defaults. Used by tests.
func (h *BillHandler) WithClock(now func() time.Time) *BillHandler {
	h.now = now
	return h
}

// CreateBill handles POST /api/bills.
func (h *BillHandler) CreateBill(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateBillRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	now := h.now().In(h.loc)
	date := req.Date
	if date == "" {
		date = now.Format(domain.DateLayout)
	}
	at := domain.TimeOfDayOf(now)
	if req.Time != "" {
		parsed, err := domain.ParseTimeOfDay(req.Time)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		at = parsed
	}

	entry, err := domain.NewBillEntry(date, domain.BillType(req.Type), req.Amount, req.Description, at)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	saved, err := h.bills.Create(r.Context(), entry)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save bill entry")
		return
	}

	log.Debug("bill entry saved",
		slog.Int64("bill_id", saved.ID),
		slog.String("type", string(saved.Type)))
	shared.RespondWithJSON(w, r, http.StatusCreated, saved)
}
