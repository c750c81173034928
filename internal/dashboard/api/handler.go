package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-ordering/internal/dashboard"
	"ms-ordering/internal/logger"
	"ms-ordering/internal/sse"
	"ms-ordering/internal/utils"
)

type Handler struct {
	Service *dashboard.Service
	Emitter *sse.LedgerEventEmitter
	Logger  *logger.Logger
}

func NewHandler(service *dashboard.Service, emitter *sse.LedgerEventEmitter, log *logger.Logger) *Handler {
	return &Handler{Service: service, Emitter: emitter, Logger: log}
}

// GetSnapshot serves the staff dashboard view.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetSnapshot: %v", err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(utils.ErrorResponse("failed to build dashboard snapshot", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(utils.SuccessResponse("dashboard snapshot", snapshot))
}

// StreamEvents pushes live ledger events to the staff dashboard over
// SSE.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	eventChan := h.Emitter.Subscribe(ctx)

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()
	h.Logger.Info("SSE", "Dashboard client connected")

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize ledger event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", "Dashboard client disconnected")
			return
		}
	}
}
