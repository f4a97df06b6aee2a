package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forzenfox/douyu-monitor/danmu"
	"github.com/forzenfox/douyu-monitor/gift"
	"github.com/forzenfox/douyu-monitor/monitor"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	opts := monitor.DefaultOptions("317422")
	mon := monitor.New(opts, nil)
	sess := danmu.NewSession(danmu.SessionConfig{Room: "317422"}, func(string) {})
	cat := gift.NewCatalog(nil, "317422")
	cat.Seed([]gift.Item{{ID: "1", Name: "辣条", Price: 100}})
	return Deps{Room: "317422", Monitor: mon, Session: sess, Catalog: cat}
}

func TestHealthz(t *testing.T) {
	mux := NewMux(testDeps(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestReadyz(t *testing.T) {
	mux := NewMux(testDeps(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ready" {
		t.Errorf("status = %q, want ready", body["status"])
	}
}

func TestReadyzWithoutSession(t *testing.T) {
	deps := testDeps(t)
	deps.Session = nil
	mux := NewMux(deps)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["failed_check"] != "session" {
		t.Errorf("failed_check = %q, want session", body["failed_check"])
	}
}

func TestStatus(t *testing.T) {
	deps := testDeps(t)
	deps.Monitor.Danmaku.Push(monitor.ChatEvent{Text: "hello"})
	deps.Monitor.Danmaku.Push(monitor.ChatEvent{Text: "world"})
	mux := NewMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Room    string `json:"room"`
		Session struct {
			State    string `json:"state"`
			Attempts int    `json:"attempts"`
		} `json:"session"`
		Stores          map[string]int `json:"stores"`
		GiftCatalogSize int            `json:"gift_catalog_size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Room != "317422" {
		t.Errorf("room = %q", body.Room)
	}
	if body.Session.State != "disconnected" {
		t.Errorf("session state = %q, want disconnected", body.Session.State)
	}
	if body.Stores["danmaku"] != 2 {
		t.Errorf("danmaku depth = %d, want 2", body.Stores["danmaku"])
	}
	if body.GiftCatalogSize != 1 {
		t.Errorf("gift_catalog_size = %d, want 1", body.GiftCatalogSize)
	}
}

func TestStatusMethodNotAllowed(t *testing.T) {
	mux := NewMux(testDeps(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestMonitorSnapshots(t *testing.T) {
	deps := testDeps(t)
	for _, txt := range []string{"one", "two", "three"} {
		deps.Monitor.Danmaku.Push(monitor.ChatEvent{Text: txt})
	}
	mux := NewMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/monitor/danmaku", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var events []monitor.ChatEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 3 || events[0].Text != "three" {
		t.Fatalf("events = %+v, want 3 newest first", events)
	}

	// limit trims to the newest entries
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/monitor/danmaku?limit=2", nil))
	events = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 2 || events[0].Text != "three" {
		t.Errorf("limited events = %+v", events)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/monitor/danmaku", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}

	// The remaining stores respond even when empty.
	for _, path := range []string{"/monitor/gifts", "/monitor/entries", "/monitor/superchats", "/monitor/commands"} {
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestCorrelationIDHeader(t *testing.T) {
	mux := NewMux(testDeps(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected generated correlation id")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-42")
	mux.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-42" {
		t.Errorf("correlation id = %q, want corr-42", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	mux := NewMux(testDeps(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/monitor/danmaku", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected permissive CORS in dev mode")
	}
}

func TestAdminGiftRefresh(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")

	giftAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"giftList":[{"id":824,"name":"粉丝荧光棒","price":100}]}}`))
	}))
	defer giftAPI.Close()

	deps := testDeps(t)
	deps.Catalog = gift.NewCatalog(&gift.Client{BaseURL: giftAPI.URL, HTTPClient: giftAPI.Client()}, "317422")
	mux := NewMux(deps)

	// Without the token the endpoint is unauthorized.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/gifts/refresh", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/gifts/refresh", nil)
	req.Header.Set("X-Admin-Token", "secret")
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if deps.Catalog.Len() != 1 {
		t.Errorf("catalog size after refresh = %d, want 1", deps.Catalog.Len())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := NewMux(testDeps(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
}
