package relay

import (
	"log/slog"

	"github.com/Tyrowin/chanrelay/internal/protocol"
)

// Session is the per-connection state machine. It starts anonymous,
// becomes authenticated on a successful login, and is discarded when the
// connection closes.
//
// A Session is driven by its connection's read loop and is not safe for
// concurrent use; the registries it touches are.
type Session struct {
	relay  *Relay
	sink   Sink
	logger *slog.Logger

	username      string
	authenticated bool

	// usernames this connection registered a route for
	routes map[string]struct{}
}

// Username returns the authenticated username, if any.
func (s *Session) Username() (string, bool) {
	return s.username, s.authenticated
}

// Handle decodes one inbound frame, applies it, and replies to the
// session's own connection.
func (s *Session) Handle(frame []byte) {
	req, err := protocol.Decode(frame)
	if err != nil {
		s.relay.observer.FormatError()
		s.logger.Debug("malformed frame", "err", err)
		s.reply(protocol.FormatError{Error: err.Error()})
		return
	}
	s.reply(s.dispatch(req))
}

// Close releases the routes this connection still owns. Channel
// membership and the user record are left untouched.
func (s *Session) Close() {
	for username := range s.routes {
		if s.relay.Connections.Remove(username, s.sink) {
			s.logger.Debug("route removed", "user", username)
		}
	}
	s.routes = make(map[string]struct{})
	s.logout()
}

func (s *Session) dispatch(req protocol.Request) protocol.Event {
	switch r := req.(type) {
	case protocol.LogoutRequest:
		s.logout()
		return protocol.Success{}
	case protocol.LoginRequest:
		return s.login(r.Username, r.Password)
	}

	username, ok := s.Username()
	if !ok {
		return protocol.NotAuthed{}
	}

	switch r := req.(type) {
	case protocol.JoinRequest:
		return s.join(username, r.Channel)
	case protocol.LeaveRequest:
		return s.leave(username, r.Channel)
	case protocol.ChannelInfoRequest:
		members, ok := s.relay.Channels.Members(r.Channel)
		if !ok {
			return protocol.NoSuchChannel{}
		}
		return protocol.ChannelInfo{Members: members}
	case protocol.JoinedChannelsRequest:
		return protocol.Channels{Channels: s.relay.Users.JoinedChannels(username)}
	case protocol.AllChannelsRequest:
		return protocol.Channels{Channels: s.relay.Channels.Names()}
	case protocol.MessageRequest:
		return s.message(username, r.Channel, r.Text)
	default:
		s.logger.Error("unhandled request type", "type", req.Type())
		return protocol.FormatError{Error: "unsupported request " + req.Type()}
	}
}

func (s *Session) logout() {
	s.username = ""
	s.authenticated = false
}

func (s *Session) login(username, password string) protocol.Event {
	s.logout()

	result, registered := s.relay.Users.AuthenticateOrRegister(username, password)
	if result != Authenticated {
		s.relay.observer.LoginRejected(username)
		s.logger.Info("login rejected", "user", username)
		return protocol.AuthFail{}
	}

	if s.relay.Connections.Register(username, s.sink) {
		s.logger.Info("login displaced an existing connection", "user", username)
	}
	s.routes[username] = struct{}{}
	s.username = username
	s.authenticated = true

	s.relay.observer.LoginSucceeded(username, registered)
	s.logger.Info("login succeeded", "user", username, "registered", registered)
	return protocol.Success{}
}

// join announces the newcomer to the existing members before committing
// the membership, so a first-time joiner never receives its own Joined
// event. Joining again is announced too; the user is then already a member
// and receives it as well.
func (s *Session) join(username, channel string) protocol.Event {
	s.relay.broadcaster.Broadcast(channel, protocol.Joined{Channel: channel, Username: username})
	s.relay.Users.AddChannel(username, channel)
	s.relay.Channels.Join(channel, username)

	s.logger.Debug("joined channel", "user", username, "channel", channel)
	return protocol.Success{}
}

// leave broadcasts before removing membership, like join. Unlike join this
// means the leaver is still a member when Left goes out and receives its
// own Left before Success; that is intended. Leaving a channel the user is
// not in changes nothing and announces nothing.
func (s *Session) leave(username, channel string) protocol.Event {
	if !s.relay.Channels.IsMember(channel, username) {
		return protocol.Success{}
	}

	s.relay.broadcaster.Broadcast(channel, protocol.Left{Channel: channel, Username: username})
	s.relay.Users.RemoveChannel(username, channel)
	s.relay.Channels.Leave(channel, username)

	s.logger.Debug("left channel", "user", username, "channel", channel)
	return protocol.Success{}
}

func (s *Session) message(username, channel, text string) protocol.Event {
	if !s.relay.Channels.IsMember(channel, username) {
		return protocol.NotInChannel{}
	}
	s.relay.broadcaster.Broadcast(channel, protocol.Message{Channel: channel, Username: username, Text: text})
	return protocol.Success{}
}

func (s *Session) reply(event protocol.Event) {
	frame, err := protocol.Encode(event)
	if err != nil {
		s.logger.Error("failed to encode reply", "type", event.Type(), "err", err)
		return
	}
	if !s.sink.TrySend(frame) {
		s.logger.Debug("reply dropped", "type", event.Type())
	}
}
