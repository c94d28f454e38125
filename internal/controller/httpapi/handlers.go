package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/service"
	"github.com/Freeeeeet/assignment_board/internal/slotkey"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Pinger checks the store connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains all HTTP handlers.
type Handler struct {
	board     *service.BoardService
	lifecycle *service.LifecycleService
	db        Pinger
	logger    *zap.Logger
}

func NewHandler(board *service.BoardService, lifecycle *service.LifecycleService, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		board:     board,
		lifecycle: lifecycle,
		db:        db,
		logger:    logger.Named("http"),
	}
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDay returns the slots of an employee day.
// GET /api/employees/{employeeID}/days/{date}/slots
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	employeeID, date, ok := dayParams(w, r)
	if !ok {
		return
	}

	slots, err := h.board.DaySlots(r.Context(), employeeID, date)
	if err != nil {
		h.fail(w, "Failed to load day", err)
		return
	}

	writeJSON(w, http.StatusOK, DayResponse{
		EmployeeID: employeeID,
		Date:       model.FormatDate(date),
		Slots:      toSlotDTOs(slots),
	})
}

// ReconcileDay replaces the day with the requested items.
// PUT /api/employees/{employeeID}/days/{date}/slots
func (h *Handler) ReconcileDay(w http.ResponseWriter, r *http.Request) {
	employeeID, date, ok := dayParams(w, r)
	if !ok {
		return
	}

	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Битые элементы остаются nil: сервис их пропускает
	keys := make([]slotkey.Key, 0, len(req.Items))
	skipped := 0
	for _, item := range req.Items {
		key := item.ToKey()
		if key == nil {
			skipped++
		}
		keys = append(keys, key)
	}

	res, err := h.board.ReconcileDay(r.Context(), employeeID, date, keys)
	if err != nil {
		h.fail(w, "Failed to reconcile day", err)
		return
	}

	writeJSON(w, http.StatusOK, ReconcileResponse{
		OK:          true,
		ClearedAll:  res.ClearedAll,
		Created:     toSlotDTOs(res.Created),
		Removed:     toSlotDTOs(res.Removed),
		TypeChanges: res.TypeChanges,
		Preserved:   res.Preserved,
		Skipped:     skipped,
	})
}

// ClearDay deletes every slot of the day.
// DELETE /api/employees/{employeeID}/days/{date}/slots
func (h *Handler) ClearDay(w http.ResponseWriter, r *http.Request) {
	employeeID, date, ok := dayParams(w, r)
	if !ok {
		return
	}

	res, err := h.board.ClearDay(r.Context(), employeeID, date)
	if err != nil {
		h.fail(w, "Failed to clear day", err)
		return
	}

	writeJSON(w, http.StatusOK, ReconcileResponse{
		OK:         true,
		ClearedAll: true,
		Created:    []SlotDTO{},
		Removed:    toSlotDTOs(res.Removed),
	})
}

// RemoveSlot deletes one slot.
// DELETE /api/employees/{employeeID}/days/{date}/slots/{slotKey}
func (h *Handler) RemoveSlot(w http.ResponseWriter, r *http.Request) {
	employeeID, date, ok := dayParams(w, r)
	if !ok {
		return
	}

	n, err := h.board.RemoveSlot(r.Context(), employeeID, date, chi.URLParam(r, "slotKey"))
	if err != nil {
		h.fail(w, "Failed to remove slot", err)
		return
	}

	writeJSON(w, http.StatusOK, RemoveResponse{OK: true, Removed: n})
}

// SetLifecycle moves a slot to a lifecycle state.
// PUT /api/employees/{employeeID}/days/{date}/slots/{slotKey}/lifecycle
func (h *Handler) SetLifecycle(w http.ResponseWriter, r *http.Request) {
	employeeID, date, ok := dayParams(w, r)
	if !ok {
		return
	}

	var req LifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	state, err := service.ParseState(req.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown lifecycle state", err)
		return
	}

	p := service.Postponement{IsTBA: req.IsTBA}
	if req.PostponedDate != nil && *req.PostponedDate != "" {
		d, err := model.ParseDate(*req.PostponedDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid postponedDate format (use YYYY-MM-DD)", err)
			return
		}
		p.Date = &d
	}

	res, err := h.lifecycle.SetLifecycleState(r.Context(), employeeID, date, chi.URLParam(r, "slotKey"), state, p)
	if err != nil {
		h.fail(w, "Failed to set lifecycle state", err)
		return
	}

	writeJSON(w, http.StatusOK, LifecycleResponse{
		OK:            true,
		Applied:       res.Applied,
		State:         string(res.State),
		Date:          model.FormatDate(res.Date),
		PostponedDate: formatOptionalDate(res.PostponedDate),
		IsTBA:         res.IsTBA,
	})
}

// ClearLifecycle resets the lifecycle state of a slot.
// DELETE /api/employees/{employeeID}/days/{date}/slots/{slotKey}/lifecycle
func (h *Handler) ClearLifecycle(w http.ResponseWriter, r *http.Request) {
	employeeID, date, ok := dayParams(w, r)
	if !ok {
		return
	}

	res, err := h.lifecycle.ClearLifecycleState(r.Context(), employeeID, date, chi.URLParam(r, "slotKey"))
	if err != nil {
		h.fail(w, "Failed to clear lifecycle state", err)
		return
	}

	writeJSON(w, http.StatusOK, ClearLifecycleResponse{OK: true, Cleared: res.Cleared, DeletedRow: res.DeletedRow})
}

// AttachCancellation records a cancellation reason for a slot.
// POST /api/employees/{employeeID}/days/{date}/slots/{slotKey}/cancellation
func (h *Handler) AttachCancellation(w http.ResponseWriter, r *http.Request) {
	employeeID, date, ok := dayParams(w, r)
	if !ok {
		return
	}

	var req CancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.lifecycle.AttachCancellationReason(r.Context(), employeeID, date, chi.URLParam(r, "slotKey"), req.Reason, req.Note)
	if err != nil {
		h.fail(w, "Failed to attach cancellation reason", err)
		return
	}

	writeJSON(w, http.StatusCreated, CancellationResponse{
		OK:        true,
		ReasonID:  res.ReasonID,
		CreatedAt: res.CreatedAt.Format(time.RFC3339),
		Attached:  res.Attached,
	})
}

// DetachCancellation unlinks the cancellation reason of a slot.
// DELETE /api/employees/{employeeID}/days/{date}/slots/{slotKey}/cancellation
func (h *Handler) DetachCancellation(w http.ResponseWriter, r *http.Request) {
	employeeID, date, ok := dayParams(w, r)
	if !ok {
		return
	}

	res, err := h.lifecycle.DetachCancellationReason(r.Context(), employeeID, date, chi.URLParam(r, "slotKey"))
	if err != nil {
		h.fail(w, "Failed to detach cancellation reason", err)
		return
	}

	writeJSON(w, http.StatusOK, DetachResponse{OK: true, Detached: res.Detached})
}

// ListCancellations returns cancellation reasons, newest first.
// GET /api/cancellations?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListCancellations(w http.ResponseWriter, r *http.Request) {
	from, err := optionalDate(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := optionalDate(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	views, err := h.lifecycle.ListCancellations(r.Context(), from, to)
	if err != nil {
		h.fail(w, "Failed to list cancellations", err)
		return
	}

	dtos := make([]CancellationDTO, 0, len(views))
	for _, v := range views {
		dtos = append(dtos, toCancellationDTO(v))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func dayParams(w http.ResponseWriter, r *http.Request) (int64, time.Time, bool) {
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "employeeID"), 10, 64)
	if err != nil || employeeID <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return 0, time.Time{}, false
	}

	date, err := model.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return 0, time.Time{}, false
	}

	return employeeID, date, true
}

func optionalDate(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// fail maps service errors: validation to 400, anything else to 500.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	if service.IsValidation(err) {
		writeError(w, http.StatusBadRequest, message, err)
		return
	}
	if errors.Is(err, context.Canceled) {
		h.logger.Debug("Request cancelled", zap.String("message", message))
	} else {
		h.logger.Error(message, zap.Error(err))
	}
	writeError(w, http.StatusInternalServerError, message, errors.New(rootMessage(err)))
}

// rootMessage drops the wrapping chain down to the innermost error text.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
