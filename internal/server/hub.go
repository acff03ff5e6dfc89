package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Hub tracks live websocket clients and owns their pump goroutines.
// Routing between clients is the relay's job; the hub only handles
// connection lifecycle.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	metrics    *Metrics
	logger     *slog.Logger
}

// NewHub creates a hub. Run must be started before clients are registered.
func NewHub(metrics *Metrics, logger *slog.Logger) *Hub {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger,
	}
}

// Register hands client to the hub, which starts its pumps. It reports
// false if the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister removes client and closes its send queue. It is idempotent and
// does not block once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.removeClient(client)
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run is the hub's event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = struct{}{}
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)
	client.logger.Info("client registered", "clients", clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	if !ok {
		return
	}
	client.closeSend()
	h.metrics.ActiveConnections.Add(-1)
	h.metrics.TotalDisconnects.Add(1)
	client.logger.Info("client unregistered", "clients", clientCount)
}

// shutdownClients closes every live connection. The read pumps notice and
// unregister their clients.
func (h *Hub) shutdownClients() {
	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		if client.conn != nil {
			client.closeConnection()
		}
	}

	h.logger.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the hub, closes all connections and waits for the pumps
// to finish. It returns context.DeadlineExceeded if they are still running
// after timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timed out; some connections may still be open", "timeout", timeout)
		return context.DeadlineExceeded
	}
}
