// Package server exposes the HTTP API handlers.
package server

import (
	"time"

	"github.com/forzenfox/douyu-monitor/danmu"
	"github.com/forzenfox/douyu-monitor/gift"
	"github.com/forzenfox/douyu-monitor/monitor"
)

// Deps bundles the collaborators the HTTP layer reads from. All of them are
// owned elsewhere; handlers only take snapshots.
type Deps struct {
	Room    string
	Monitor *monitor.Monitor
	Session *danmu.Session
	Catalog *gift.Catalog
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps    Deps
	started time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps, started: time.Now()}
}
