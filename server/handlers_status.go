package server

import (
	"net/http"
	"time"
)

// HandleStatus returns a lightweight status summary: session state, retry
// count, store depths, and catalog size.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := map[string]any{
		"room":           h.deps.Room,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}

	if s := h.deps.Session; s != nil {
		resp["session"] = map[string]any{
			"state":    s.State().String(),
			"attempts": s.Attempts(),
		}
	}

	if m := h.deps.Monitor; m != nil {
		resp["stores"] = map[string]int{
			"danmaku":   m.Danmaku.Len(),
			"gift":      m.Gifts.Len(),
			"enter":     m.Entries.Len(),
			"superchat": m.Superchats.Len(),
			"command":   m.Commands.Len(),
		}
		resp["superchat_contributions"] = m.ContributionCount()
	}

	if c := h.deps.Catalog; c != nil {
		resp["gift_catalog_size"] = c.Len()
	}

	writeJSON(w, http.StatusOK, resp)
}
