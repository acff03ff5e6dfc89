package server

import "net/http"

// Routes returns the server's HTTP handler: health checks, the websocket
// endpoint, and, when enabled, metrics and the browser test page.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/healthz", HealthzHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	if s.cfg.EnableMetrics {
		mux.HandleFunc("/metrics", MetricsHandler(s.metrics, s.relay))
	}
	if s.cfg.EnableTestPage {
		mux.HandleFunc("/test", TestPageHandler)
	}
	return mux
}
