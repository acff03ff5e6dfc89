package relay

import (
	"crypto/subtle"
	"sort"
	"sync"
)

// AuthResult is the outcome of a login attempt.
type AuthResult int

const (
	Rejected AuthResult = iota
	Authenticated
)

func (a AuthResult) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

type user struct {
	password string
	channels map[string]struct{}
}

// UserStore holds every user seen since startup together with the set of
// channels each one has joined.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*user
}

// NewUserStore creates an empty store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]*user),
	}
}

// AuthenticateOrRegister checks password against the stored one, or
// registers username with password if it has never been seen. The check
// and the insert happen under one write lock. registered reports whether
// this call created the user.
func (us *UserStore) AuthenticateOrRegister(username, password string) (result AuthResult, registered bool) {
	us.mu.Lock()
	defer us.mu.Unlock()

	u, ok := us.users[username]
	if !ok {
		us.users[username] = &user{
			password: password,
			channels: make(map[string]struct{}),
		}
		return Authenticated, true
	}

	if subtle.ConstantTimeCompare([]byte(u.password), []byte(password)) != 1 {
		return Rejected, false
	}
	return Authenticated, false
}

// AddChannel records that username joined channel. Unknown users are ignored.
func (us *UserStore) AddChannel(username, channel string) {
	us.mu.Lock()
	defer us.mu.Unlock()
	if u, ok := us.users[username]; ok {
		u.channels[channel] = struct{}{}
	}
}

// RemoveChannel records that username left channel. Unknown users are ignored.
func (us *UserStore) RemoveChannel(username, channel string) {
	us.mu.Lock()
	defer us.mu.Unlock()
	if u, ok := us.users[username]; ok {
		delete(u.channels, channel)
	}
}

// JoinedChannels returns a sorted snapshot of the channels username has joined.
func (us *UserStore) JoinedChannels(username string) []string {
	us.mu.RLock()
	defer us.mu.RUnlock()

	u, ok := us.users[username]
	if !ok {
		return nil
	}
	channels := make([]string, 0, len(u.channels))
	for name := range u.channels {
		channels = append(channels, name)
	}
	sort.Strings(channels)
	return channels
}

// Exists reports whether username has ever logged in.
func (us *UserStore) Exists(username string) bool {
	us.mu.RLock()
	defer us.mu.RUnlock()
	_, ok := us.users[username]
	return ok
}

// Count returns the number of registered users.
func (us *UserStore) Count() int {
	us.mu.RLock()
	defer us.mu.RUnlock()
	return len(us.users)
}
