// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	FramesReceived prometheus.Counter
	HeartbeatsSent prometheus.Counter
	Reconnects     prometheus.Counter

	// Per-kind event counters. Drops carry a reason label (filtered, duplicate,
	// unroutable, foreign_room).
	EventsAccepted *prometheus.CounterVec
	EventsDropped  *prometheus.CounterVec

	// Histograms (seconds)
	DispatchDuration prometheus.Observer

	// Gauges
	ConnectedGauge prometheus.Gauge // 1=connected,0=not
	StoreDepth     *prometheus.GaugeVec
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		FramesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "danmu_frames_received_total", Help: "Number of gateway frames received"})
		HeartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "danmu_heartbeats_sent_total", Help: "Number of keepalive packets sent"})
		Reconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "danmu_reconnects_total", Help: "Number of reconnect attempts scheduled"})
		EventsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{Name: "monitor_events_accepted_total", Help: "Events accepted into a store, by kind"}, []string{"kind"})
		EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "monitor_events_dropped_total", Help: "Messages dropped before storage, by kind and reason"}, []string{"kind", "reason"})
		DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "monitor_dispatch_duration_seconds", Help: "Frame dispatch duration seconds", Buckets: prometheus.DefBuckets})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "danmu_connected", Help: "Gateway session connected=1 else 0"})
		StoreDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "monitor_store_depth", Help: "Current number of retained events, by kind"}, []string{"kind"})
	})
}

// SetConnected sets the session gauge to 1 if connected else 0.
func SetConnected(up bool) {
	if ConnectedGauge != nil {
		if up {
			ConnectedGauge.Set(1)
		} else {
			ConnectedGauge.Set(0)
		}
	}
}

// SetStoreDepth records the retained event count for one store.
func SetStoreDepth(kind string, n int) {
	if StoreDepth != nil {
		StoreDepth.WithLabelValues(kind).Set(float64(n))
	}
}

// CountAccepted increments the accepted counter for kind.
func CountAccepted(kind string) {
	if EventsAccepted != nil {
		EventsAccepted.WithLabelValues(kind).Inc()
	}
}

// CountDropped increments the dropped counter for kind and reason.
func CountDropped(kind, reason string) {
	if EventsDropped != nil {
		EventsDropped.WithLabelValues(kind, reason).Inc()
	}
}

// CountFrame increments the received-frame counter.
func CountFrame() {
	if FramesReceived != nil {
		FramesReceived.Inc()
	}
}

// CountHeartbeat increments the keepalive counter.
func CountHeartbeat() {
	if HeartbeatsSent != nil {
		HeartbeatsSent.Inc()
	}
}

// CountReconnect increments the reconnect counter.
func CountReconnect() {
	if Reconnects != nil {
		Reconnects.Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
