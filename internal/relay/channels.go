package relay

import (
	"sort"
	"sync"
)

// ChannelRegistry maps channel names to their member usernames. Channels
// are created by the first join and are never deleted, even when empty.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string]map[string]struct{}
}

// NewChannelRegistry creates an empty registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{
		channels: make(map[string]map[string]struct{}),
	}
}

// Join adds username to channel, creating the channel if needed.
func (cr *ChannelRegistry) Join(channel, username string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	members, ok := cr.channels[channel]
	if !ok {
		members = make(map[string]struct{})
		cr.channels[channel] = members
	}
	members[username] = struct{}{}
}

// Leave removes username from channel. The channel entry stays in place;
// leaving a channel nobody ever joined does not create it.
func (cr *ChannelRegistry) Leave(channel, username string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if members, ok := cr.channels[channel]; ok {
		delete(members, username)
	}
}

// Members returns a sorted snapshot of channel's members taken under a
// single read lock. ok is false only if nobody ever joined channel.
func (cr *ChannelRegistry) Members(channel string) (members []string, ok bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	set, ok := cr.channels[channel]
	if !ok {
		return nil, false
	}
	members = make([]string, 0, len(set))
	for name := range set {
		members = append(members, name)
	}
	sort.Strings(members)
	return members, true
}

// IsMember reports whether username currently belongs to channel.
func (cr *ChannelRegistry) IsMember(channel, username string) bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	_, ok := cr.channels[channel][username]
	return ok
}

// Names returns a sorted snapshot of every channel name.
func (cr *ChannelRegistry) Names() []string {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	names := make([]string, 0, len(cr.channels))
	for name := range cr.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of channels, empty ones included.
func (cr *ChannelRegistry) Count() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.channels)
}
