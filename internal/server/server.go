package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/chanrelay/internal/relay"
)

const metricsLogInterval = 60 * time.Second

// Server ties one relay to the websocket transport and HTTP surface.
// Everything a connection needs is reached through the Server, so several
// servers can run in one process without sharing state.
type Server struct {
	cfg      Config
	relay    *relay.Relay
	hub      *Hub
	metrics  *Metrics
	origins  *originPolicy
	upgrader websocket.Upgrader
	logger   *slog.Logger

	httpServer *http.Server
	done       chan struct{}
	startOnce  sync.Once
	stopOnce   sync.Once
}

// New builds a server from cfg. cfg is sanitized first; a nil logger falls
// back to slog.Default.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Sanitize()

	metrics := NewMetrics()
	s := &Server{
		cfg:     cfg,
		metrics: metrics,
		hub:     NewHub(metrics, logger),
		origins: newOriginPolicy(cfg.AllowedOrigins, logger),
		logger:  logger,
		done:    make(chan struct{}),
	}
	s.relay = relay.New(relay.Options{Observer: metrics, Logger: logger})
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	s.httpServer = CreateServer(cfg.Addr, s.Routes())
	return s
}

// Config returns the sanitized configuration.
func (s *Server) Config() Config {
	return s.cfg
}

// Relay returns the server's relay state.
func (s *Server) Relay() *relay.Relay {
	return s.relay
}

// Hub returns the connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start launches the hub loop and, when metrics are enabled, the periodic
// metrics log. It does not listen; see ListenAndServe.
func (s *Server) Start() {
	s.startOnce.Do(func() {
		go s.hub.Run()
		if s.cfg.EnableMetrics {
			s.metrics.StartPeriodicLog(metricsLogInterval, s.done, s.logger, s.relay)
		}
		s.logger.Info("hub started")
	})
}

// ListenAndServe starts the server and serves HTTP on cfg.Addr until
// Shutdown. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	s.Start()
	if err := StartServer(s.httpServer, s.logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting HTTP requests, then closes every websocket
// connection. Each phase is bounded by cfg.ShutdownTimeout.
func (s *Server) Shutdown() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		if httpErr := ShutdownServer(s.httpServer, s.cfg.ShutdownTimeout, s.logger); httpErr != nil {
			err = httpErr
		}
		s.Start()
		if hubErr := s.hub.Shutdown(s.cfg.ShutdownTimeout); hubErr != nil && err == nil {
			err = hubErr
		}
	})
	return err
}
