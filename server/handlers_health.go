package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/forzenfox/douyu-monitor/danmu"
)

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed system checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"session", func() error {
			if h.deps.Session == nil {
				return fmt.Errorf("no gateway session")
			}
			if state := h.deps.Session.State(); state == danmu.StateClosed {
				return fmt.Errorf("gateway session closed")
			}
			return nil
		}},
		{"dispatcher", func() error {
			if h.deps.Monitor == nil {
				return fmt.Errorf("no dispatcher")
			}
			return nil
		}},
		{"gift_catalog", func() error {
			// An empty table is fine (filters fail open); a missing
			// catalog means wiring went wrong.
			if h.deps.Catalog == nil {
				return fmt.Errorf("no gift catalog")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
