package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Tyrowin/chanrelay/internal/protocol"
	"github.com/Tyrowin/chanrelay/internal/relay"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
// Metrics implements relay.Observer.
type Metrics struct {
	startTime time.Time

	// Connection counters
	TotalConnections  atomic.Int64 // lifetime websocket connections accepted
	ActiveConnections atomic.Int64 // current registered connections
	TotalDisconnects  atomic.Int64 // connections unregistered

	// Session counters
	SuccessfulLogins atomic.Int64 // logins accepted, including registrations
	Registrations    atomic.Int64 // logins that created a new user
	RejectedLogins   atomic.Int64 // logins with a wrong password
	FormatErrors     atomic.Int64 // inbound frames that failed to decode

	// Fan-out counters
	MessagesRelayed     atomic.Int64 // Message events broadcast
	DeliveriesAttempted atomic.Int64 // per-member pushes attempted
	DeliveriesFailed    atomic.Int64 // pushes to absent or full connections
}

var _ relay.Observer = (*Metrics)(nil)

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// LoginSucceeded implements relay.Observer.
func (m *Metrics) LoginSucceeded(_ string, registered bool) {
	m.SuccessfulLogins.Add(1)
	if registered {
		m.Registrations.Add(1)
	}
}

// LoginRejected implements relay.Observer.
func (m *Metrics) LoginRejected(string) {
	m.RejectedLogins.Add(1)
}

// FormatError implements relay.Observer.
func (m *Metrics) FormatError() {
	m.FormatErrors.Add(1)
}

// Broadcast implements relay.Observer.
func (m *Metrics) Broadcast(eventType, _ string, recipients, delivered int) {
	if eventType == protocol.TypeMessage {
		m.MessagesRelayed.Add(1)
	}
	m.DeliveriesAttempted.Add(int64(recipients))
	m.DeliveriesFailed.Add(int64(recipients - delivered))
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	TotalDisconnects  int64 `json:"total_disconnects"`

	SuccessfulLogins int64 `json:"successful_logins"`
	Registrations    int64 `json:"registrations"`
	RejectedLogins   int64 `json:"rejected_logins"`
	FormatErrors     int64 `json:"format_errors"`

	MessagesRelayed     int64 `json:"messages_relayed"`
	DeliveriesAttempted int64 `json:"deliveries_attempted"`
	DeliveriesFailed    int64 `json:"deliveries_failed"`

	Users    int `json:"users"`
	Channels int `json:"channels"`
}

// Snapshot returns a read-consistent snapshot of all metrics. User and
// channel gauges are read from r when it is non-nil.
func (m *Metrics) Snapshot(r *relay.Relay) MetricsSnapshot {
	uptime := time.Since(m.startTime)
	s := MetricsSnapshot{
		Uptime:              uptime.Truncate(time.Second).String(),
		UptimeSeconds:       int64(uptime.Seconds()),
		ActiveConnections:   m.ActiveConnections.Load(),
		TotalConnections:    m.TotalConnections.Load(),
		TotalDisconnects:    m.TotalDisconnects.Load(),
		SuccessfulLogins:    m.SuccessfulLogins.Load(),
		Registrations:       m.Registrations.Load(),
		RejectedLogins:      m.RejectedLogins.Load(),
		FormatErrors:        m.FormatErrors.Load(),
		MessagesRelayed:     m.MessagesRelayed.Load(),
		DeliveriesAttempted: m.DeliveriesAttempted.Load(),
		DeliveriesFailed:    m.DeliveriesFailed.Load(),
	}
	if r != nil {
		s.Users = r.Users.Count()
		s.Channels = r.Channels.Count()
	}
	return s
}

// LogSummary writes a metrics summary to logger.
func (m *Metrics) LogSummary(logger *slog.Logger, r *relay.Relay) {
	s := m.Snapshot(r)
	logger.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"users", s.Users,
		"channels", s.Channels,
		"messages", s.MessagesRelayed,
		"deliveries_failed", s.DeliveriesFailed,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}, logger *slog.Logger, r *relay.Relay) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary(logger, r)
			}
		}
	}()
}

// MetricsHandler writes all metrics in Prometheus text exposition format.
func MetricsHandler(m *Metrics, r *relay.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s := m.Snapshot(r)
		uptime := time.Since(m.startTime).Seconds()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		// Write errors to http.ResponseWriter are non-actionable.
		write := func(name, help, mtype string, value int64) {
			_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
			_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
			_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
		}

		_, _ = fmt.Fprintf(w, "# HELP chanrelay_uptime_seconds Server uptime in seconds.\n")
		_, _ = fmt.Fprintf(w, "# TYPE chanrelay_uptime_seconds gauge\n")
		_, _ = fmt.Fprintf(w, "chanrelay_uptime_seconds %f\n", uptime)

		write("chanrelay_connections_active", "Current websocket connections.", "gauge", s.ActiveConnections)
		write("chanrelay_connections_total", "Lifetime websocket connections accepted.", "counter", s.TotalConnections)
		write("chanrelay_disconnects_total", "Total client disconnects.", "counter", s.TotalDisconnects)

		write("chanrelay_logins_total", "Successful logins.", "counter", s.SuccessfulLogins)
		write("chanrelay_registrations_total", "Logins that registered a new user.", "counter", s.Registrations)
		write("chanrelay_logins_rejected_total", "Logins rejected for a wrong password.", "counter", s.RejectedLogins)
		write("chanrelay_format_errors_total", "Inbound frames that failed to decode.", "counter", s.FormatErrors)

		write("chanrelay_messages_relayed_total", "Channel messages broadcast.", "counter", s.MessagesRelayed)
		write("chanrelay_deliveries_total", "Per-member event pushes attempted.", "counter", s.DeliveriesAttempted)
		write("chanrelay_deliveries_failed_total", "Event pushes to absent or saturated connections.", "counter", s.DeliveriesFailed)

		write("chanrelay_users", "Known users.", "gauge", int64(s.Users))
		write("chanrelay_channels", "Known channels.", "gauge", int64(s.Channels))
	}
}
