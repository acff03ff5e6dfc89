package relay

import "sync"

// ConnectionRegistry routes a username to the sink of its current
// connection. Each username has at most one entry; the last login wins.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		sinks: make(map[string]Sink),
	}
}

// Register points username at sink, replacing any previous entry without
// notifying it. It reports whether another sink was displaced.
func (cr *ConnectionRegistry) Register(username string, sink Sink) bool {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	prev, exists := cr.sinks[username]
	cr.sinks[username] = sink
	return exists && prev != sink
}

// Remove deletes the entry for username only while it still points at
// sink, so a displaced connection cannot unroute its successor.
func (cr *ConnectionRegistry) Remove(username string, sink Sink) bool {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if current, ok := cr.sinks[username]; ok && current == sink {
		delete(cr.sinks, username)
		return true
	}
	return false
}

// Lookup returns the sink currently registered for username.
func (cr *ConnectionRegistry) Lookup(username string) (Sink, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	sink, ok := cr.sinks[username]
	return sink, ok
}

// Route pushes frame to username's connection. The lock is released
// before the push; the result reports delivery and is informational only.
func (cr *ConnectionRegistry) Route(username string, frame []byte) bool {
	sink, ok := cr.Lookup(username)
	if !ok {
		return false
	}
	return sink.TrySend(frame)
}

// Count returns the number of routable usernames.
func (cr *ConnectionRegistry) Count() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.sinks)
}
