// Package relay implements the in-memory publish/subscribe core: the
// connection, user and channel registries, channel fan-out, and the
// per-connection session state machine that drives them.
//
// A Relay is the shared server context. It is created once and handed to
// every Session, so independent relays (for example one per test) never
// share state.
package relay

import (
	"log/slog"
)

// Sink is the capability to push one encoded frame to a live connection.
// TrySend must not block; it reports whether the frame was queued.
// Implementations must be comparable, since registries match sinks by
// identity.
type Sink interface {
	TrySend(frame []byte) bool
}

// Observer receives notifications about relay activity. Implementations
// must be safe for concurrent use.
type Observer interface {
	LoginSucceeded(username string, registered bool)
	LoginRejected(username string)
	FormatError()
	Broadcast(eventType, channel string, recipients, delivered int)
}

type nopObserver struct{}

func (nopObserver) LoginSucceeded(string, bool)        {}
func (nopObserver) LoginRejected(string)               {}
func (nopObserver) FormatError()                       {}
func (nopObserver) Broadcast(string, string, int, int) {}

// Options configures a Relay. The zero value is usable.
type Options struct {
	Observer Observer
	Logger   *slog.Logger
}

// Relay owns the three shared registries and the broadcaster.
type Relay struct {
	Connections *ConnectionRegistry
	Users       *UserStore
	Channels    *ChannelRegistry

	broadcaster *Broadcaster
	observer    Observer
	logger      *slog.Logger
}

// New creates an empty relay.
func New(opts Options) *Relay {
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Relay{
		Connections: NewConnectionRegistry(),
		Users:       NewUserStore(),
		Channels:    NewChannelRegistry(),
		observer:    observer,
		logger:      logger,
	}
	r.broadcaster = NewBroadcaster(r.Channels, r.Connections, observer, logger)
	return r
}

// Broadcaster returns the relay's channel fan-out.
func (r *Relay) Broadcaster() *Broadcaster {
	return r.broadcaster
}

// NewSession binds a new anonymous session to sink. A nil logger falls
// back to the relay's logger.
func (r *Relay) NewSession(sink Sink, logger *slog.Logger) *Session {
	if logger == nil {
		logger = r.logger
	}
	return &Session{
		relay:  r,
		sink:   sink,
		logger: logger,
		routes: make(map[string]struct{}),
	}
}
