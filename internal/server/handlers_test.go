package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, customize func(cfg *Config)) *Server {
	t.Helper()
	cfg := DefaultConfig()
	if customize != nil {
		customize(&cfg)
	}
	s := New(cfg, discardLogger())
	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthHandlers(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, http.MethodGet, "/")
	if rec.Code != http.StatusOK || rec.Body.String() != "chanrelay server is running" {
		t.Errorf("/ returned %d %q", rec.Code, rec.Body.String())
	}

	rec = serve(s, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("/healthz returned %d %q", rec.Code, rec.Body.String())
	}
}

func TestWebSocketHandlerRejectsNonGET(t *testing.T) {
	s := newTestServer(t, nil)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := serve(s, method, "/ws")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s /ws returned %d, want 405", method, rec.Code)
		}
	}
}

func TestWebSocketHandlerRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, nil)

	rec := serve(s, http.MethodGet, "/ws")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("plain GET /ws returned %d, want 400", rec.Code)
	}
	if s.Hub().Count() != 0 {
		t.Error("failed upgrade registered a client")
	}
}

func TestOptionalRoutes(t *testing.T) {
	enabled := newTestServer(t, nil)
	if rec := serve(enabled, http.MethodGet, "/metrics"); !strings.Contains(rec.Body.String(), "chanrelay_connections_total") {
		t.Errorf("/metrics not served when enabled: %q", rec.Body.String())
	}
	rec := serve(enabled, http.MethodGet, "/test")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("/test Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "/ws") {
		t.Error("test page does not reference the websocket endpoint")
	}

	disabled := newTestServer(t, func(cfg *Config) {
		cfg.EnableMetrics = false
		cfg.EnableTestPage = false
	})
	// disabled routes fall through to the health handler
	for _, path := range []string{"/metrics", "/test"} {
		if rec := serve(disabled, http.MethodGet, path); rec.Body.String() != "chanrelay server is running" {
			t.Errorf("%s served %q when disabled", path, rec.Body.String())
		}
	}
}
