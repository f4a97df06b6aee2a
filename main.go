// Command douyu-monitor is the main entrypoint for the broadcast-chat monitor.
// It:
//   - Loads configuration and initializes structured logging.
//   - Fetches the room's gift catalog and keeps it refreshed in the background.
//   - Connects a danmaku gateway session and feeds frames to the dispatcher.
//   - Exposes an HTTP server with /healthz, /readyz, /status, /metrics, and
//     JSON snapshots of the retained event stores.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/forzenfox/douyu-monitor/config"
	"github.com/forzenfox/douyu-monitor/danmu"
	"github.com/forzenfox/douyu-monitor/gift"
	"github.com/forzenfox/douyu-monitor/monitor"
	"github.com/forzenfox/douyu-monitor/server"
	"github.com/forzenfox/douyu-monitor/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateMonitorReady(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("douyu-monitor", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Gift catalog: best-effort initial fetch, then periodic refresh. A failed
	// fetch is not fatal; price filters fail open until the next refresh.
	catalog := gift.NewCatalog(&gift.Client{BaseURL: cfg.GiftAPIBase}, cfg.RoomID)
	func() {
		fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := catalog.Refresh(fetchCtx); err != nil {
			slog.Warn("initial gift catalog fetch failed", slog.Any("err", err))
		}
	}()
	go catalog.RunRefresher(ctx, cfg.GiftRefreshInterval)

	// Dispatcher and its expiry sweeper
	mon := monitor.New(cfg.MonitorOptions(), catalog)
	go mon.Run(ctx)

	// Gateway session
	session := danmu.NewSession(danmu.SessionConfig{
		Room:              cfg.RoomID,
		Endpoints:         cfg.Endpoints,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Backoff: danmu.Backoff{
			Base: cfg.BackoffBase,
			Cap:  cfg.BackoffCap,
		},
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}, mon.HandleFrame)
	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("gateway session exited with error", slog.Any("err", err))
		}
	}()
	defer session.Close()

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics/snapshots)
	deps := server.Deps{
		Room:    cfg.RoomID,
		Monitor: mon,
		Session: session,
		Catalog: catalog,
	}
	go func() {
		if err := server.Start(ctx, deps, cfg.ServerAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
