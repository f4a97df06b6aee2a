package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPRateLimiterBurst(t *testing.T) {
	rl := newIPRateLimiter(&rateLimiterConfig{
		enabled:       true,
		requestsPerIP: 3,
		window:        time.Minute,
	})

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request over burst should be denied")
	}
	// A different client has its own bucket.
	if !rl.allow("10.0.0.2") {
		t.Error("second client should be allowed")
	}
}

func TestIPRateLimiterDisabled(t *testing.T) {
	rl := newIPRateLimiter(&rateLimiterConfig{enabled: false, requestsPerIP: 1, window: time.Minute})
	for i := 0; i < 10; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatal("disabled limiter must always allow")
		}
	}
}

func TestRateLimitMiddlewareForwardedFor(t *testing.T) {
	rl := newIPRateLimiter(&rateLimiterConfig{
		enabled:       true,
		requestsPerIP: 1,
		window:        time.Minute,
	})
	handler := rateLimitMiddleware(okHandler(), rl)

	send := func(xff string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin/gifts/refresh", nil)
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("1.2.3.4, 10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", code)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/gifts/refresh", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 should carry Retry-After")
	}
	if code := send("5.6.7.8"); code != http.StatusOK {
		t.Errorf("other client = %d, want 200", code)
	}
}

func TestAdminAuthDisabledPassesThrough(t *testing.T) {
	cfg := &authConfig{enabled: false}
	rec := httptest.NewRecorder()
	adminAuth(okHandler(), cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/gifts/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 without configured auth", rec.Code)
	}
}

func TestAdminAuthToken(t *testing.T) {
	cfg := &authConfig{adminToken: "secret", enabled: true}
	handler := adminAuth(okHandler(), cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/gifts/refresh", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/gifts/refresh", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/gifts/refresh", nil)
	req.Header.Set("X-Admin-Token", "secret")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with token = %d, want 200", rec.Code)
	}
}

func TestAdminAuthBasic(t *testing.T) {
	cfg := &authConfig{adminUsername: "admin", adminPassword: "pw", enabled: true}
	handler := adminAuth(okHandler(), cfg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/gifts/refresh", nil)
	req.SetBasicAuth("admin", "pw")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/gifts/refresh", nil)
	req.SetBasicAuth("admin", "nope")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with bad password = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("401 should carry WWW-Authenticate")
	}
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://example.com", "*.douyu.com"}

	cases := []struct {
		origin string
		want   bool
	}{
		{"https://example.com", true},
		{"https://evil.com", false},
		{"https://www.douyu.com", true},
		{"https://douyu.com", true},
		{"https://notdouyu.com", false},
	}
	for _, c := range cases {
		if got := isOriginAllowed(c.origin, allowed); got != c.want {
			t.Errorf("isOriginAllowed(%q) = %v, want %v", c.origin, got, c.want)
		}
	}
}

func TestRestrictedCORS(t *testing.T) {
	cfg := &corsConfig{permissive: false, allowedOrigins: []string{"https://example.com"}}
	handler := withCORSConfig(okHandler(), cfg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://example.com")
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Error("allowed origin should be echoed")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://evil.com")
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("disallowed origin must not be echoed")
	}
}
