package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/harshithgowdakt/mtqueue/internal/queue"
)

// StatusHandler serves a replica's observable queue surface (spec §6).
type StatusHandler struct {
	q *queue.Queue
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(q *queue.Queue) *StatusHandler {
	return &StatusHandler{q: q}
}

// HandleStatus returns the queue's aggregate counts and timestamps as JSON.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.q.GetStatus()); err != nil {
		http.Error(w, fmt.Sprintf("encode error: %v", err), http.StatusInternalServerError)
	}
}

// HandleEntries returns a snapshot of every currently queued entry as JSON.
func (h *StatusHandler) HandleEntries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.q.GetEntries()); err != nil {
		http.Error(w, fmt.Sprintf("encode error: %v", err), http.StatusInternalServerError)
	}
}

// HandlePing responds with "Ok." for health checks.
func (h *StatusHandler) HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Ok.")
}
