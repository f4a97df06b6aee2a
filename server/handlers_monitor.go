package server

import (
	"log/slog"
	"net/http"

	"github.com/forzenfox/douyu-monitor/telemetry"
)

// snapshot serializes the newest events of one store. The optional limit
// query parameter trims the response; snapshots are newest first, so a limit
// keeps the most recent events.
func snapshot[T any](w http.ResponseWriter, r *http.Request, events []T) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if limit := parseIntQuery(r, "limit", 0); limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleDanmaku returns the retained chat events, newest first.
func (h *Handlers) HandleDanmaku(w http.ResponseWriter, r *http.Request) {
	snapshot(w, r, h.deps.Monitor.Danmaku.Snapshot())
}

// HandleGifts returns the retained gift events, newest first.
func (h *Handlers) HandleGifts(w http.ResponseWriter, r *http.Request) {
	snapshot(w, r, h.deps.Monitor.Gifts.Snapshot())
}

// HandleEntries returns the retained entrance events, newest first.
func (h *Handlers) HandleEntries(w http.ResponseWriter, r *http.Request) {
	snapshot(w, r, h.deps.Monitor.Entries.Snapshot())
}

// HandleSuperchats returns the retained superchats, newest first, including
// entries already marked expired by the sweeper.
func (h *Handlers) HandleSuperchats(w http.ResponseWriter, r *http.Request) {
	snapshot(w, r, h.deps.Monitor.Superchats.Snapshot())
}

// HandleCommands returns the retained command events, newest first.
func (h *Handlers) HandleCommands(w http.ResponseWriter, r *http.Request) {
	snapshot(w, r, h.deps.Monitor.Commands.Snapshot())
}

// HandleAdminGiftRefresh forces a gift catalog fetch, bypassing the throttle.
func (h *Handlers) HandleAdminGiftRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.Catalog == nil {
		http.Error(w, "no gift catalog", http.StatusServiceUnavailable)
		return
	}
	if err := h.deps.Catalog.ForceRefresh(r.Context()); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("forced gift refresh failed", slog.Any("err", err))
		http.Error(w, "refresh failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "refreshed",
		"gifts":  h.deps.Catalog.Len(),
	})
}
