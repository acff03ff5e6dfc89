package relay

import (
	"log/slog"

	"github.com/Tyrowin/chanrelay/internal/protocol"
)

// Delivery summarizes one fan-out.
type Delivery struct {
	Recipients int
	Delivered  int
}

// Broadcaster fans an event out to every current member of a channel.
type Broadcaster struct {
	channels    *ChannelRegistry
	connections *ConnectionRegistry
	observer    Observer
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster over the given registries.
func NewBroadcaster(channels *ChannelRegistry, connections *ConnectionRegistry, observer Observer, logger *slog.Logger) *Broadcaster {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		channels:    channels,
		connections: connections,
		observer:    observer,
		logger:      logger,
	}
}

// Broadcast encodes event once and routes it to every member of channel.
// The member list is a single snapshot, and no registry lock is held while
// frames are pushed. An unknown channel is a no-op. Failed deliveries are
// counted but otherwise ignored.
func (b *Broadcaster) Broadcast(channel string, event protocol.Event) Delivery {
	members, ok := b.channels.Members(channel)
	if !ok || len(members) == 0 {
		return Delivery{}
	}

	frame, err := protocol.Encode(event)
	if err != nil {
		b.logger.Error("failed to encode broadcast", "type", event.Type(), "channel", channel, "err", err)
		return Delivery{}
	}

	d := Delivery{Recipients: len(members)}
	for _, member := range members {
		if b.connections.Route(member, frame) {
			d.Delivered++
		}
	}

	b.observer.Broadcast(event.Type(), channel, d.Recipients, d.Delivered)
	if d.Delivered < d.Recipients {
		b.logger.Debug("broadcast partially delivered",
			"type", event.Type(),
			"channel", channel,
			"recipients", d.Recipients,
			"delivered", d.Delivered,
		)
	}
	return d
}
