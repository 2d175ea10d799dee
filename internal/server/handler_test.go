package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harshithgowdakt/mtqueue/internal/queue"
	"github.com/harshithgowdakt/mtqueue/internal/server"
)

func TestHandleStatusReturnsQueueStatus(t *testing.T) {
	q := queue.New("t", "r1", nil)
	q.Insert(queue.NewLogEntry(queue.MergeParts, "all_1_2_1", []string{"all_1_1_0", "all_2_2_0"}, time.Now()))

	handler := server.NewStatusHandler(q)
	req := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	handler.HandleStatus(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status queue.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.QueueSize != 1 {
		t.Fatalf("expected queue size 1, got %d", status.QueueSize)
	}
	if status.MergesInQueue != 1 {
		t.Fatalf("expected 1 merge in queue, got %d", status.MergesInQueue)
	}
}

func TestHandlePingRespondsOk(t *testing.T) {
	handler := server.NewStatusHandler(queue.New("t", "r1", nil))
	req := httptest.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	handler.HandlePing(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "Ok.\n" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}
