package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-ordering/internal/ledger"
	"ms-ordering/internal/logger"
	"ms-ordering/internal/models"
	"ms-ordering/internal/tables"
	"ms-ordering/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Ledger *ledger.Service
	Tables *tables.Service
	Logger *logger.Logger
}

func NewHandler(ledgerService *ledger.Service, tableService *tables.Service, log *logger.Logger) *Handler {
	return &Handler{Ledger: ledgerService, Tables: tableService, Logger: log}
}

// AppendOrder handles a diner submission for one table.
func (h *Handler) AppendOrder(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")

	var req models.AppendOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AppendOrder: invalid body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	order, err := h.Ledger.AppendOrder(r.Context(), tableID, req.Items, idemKey)
	if err != nil {
		h.writeError(w, "AppendOrder", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse(
		fmt.Sprintf("order #%d placed", order.SequenceNumber), order))
}

// OpenSession opens a session for the table, or returns the current one.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")

	sessionID, err := h.Ledger.OpenOrAttach(r.Context(), tableID)
	if err != nil {
		h.writeError(w, "OpenSession", err)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("session open", map[string]string{
		"tableId":   tableID,
		"sessionId": sessionID,
	}))
}

// SettleTable closes the table's current session.
func (h *Handler) SettleTable(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")

	session, err := h.Ledger.Settle(r.Context(), tableID)
	if err != nil {
		h.writeError(w, "SettleTable", err)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse(
		fmt.Sprintf("table %s settled, total %.2f", tableID, session.TotalAmount), session))
}

// GetTableView serves the diner-facing table page data.
func (h *Handler) GetTableView(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")

	view, err := h.Ledger.TableView(r.Context(), tableID)
	if err != nil {
		h.writeError(w, "GetTableView", err)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("table view", view))
}

// AdvanceOrderStatus moves an order forward in the kitchen flow.
func (h *Handler) AdvanceOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	order, err := h.Ledger.AdvanceOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.writeError(w, "AdvanceOrderStatus", err)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("order status updated", order))
}

// CreateTable provisions a new table.
func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableID string `json:"tableId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	table, err := h.Tables.Create(r.Context(), req.TableID)
	if err != nil {
		h.writeError(w, "CreateTable", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("table created", table))
}

// DeleteTable removes a free table.
func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")

	if err := h.Tables.Delete(r.Context(), tableID); err != nil {
		h.writeError(w, "DeleteTable", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTables returns all provisioned tables.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	allTables, err := h.Tables.List(r.Context())
	if err != nil {
		h.writeError(w, "ListTables", err)
		return
	}

	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("tables", allTables))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}

// writeError maps ledger error kinds to HTTP codes. The wrapped message
// is safe to show to the caller.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidCart),
		errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, tables.ErrInvalidTableID):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrTableNotFound),
		errors.Is(err, ledger.ErrOrderNotFound),
		errors.Is(err, tables.ErrTableNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrNoActiveSession),
		errors.Is(err, ledger.ErrDuplicateSubmission),
		errors.Is(err, tables.ErrTableExists),
		errors.Is(err, tables.ErrTableBusy):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrStaleSession):
		// Retries already exhausted; the client may simply try again.
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}
	h.writeJSON(w, status, utils.ErrorResponse("request failed", err.Error()))
}
