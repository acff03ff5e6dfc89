package protocol

import "encoding/json"

// Outbound variant names. ChannelInfo and Message share their names with
// the inbound variants.
const (
	TypeSuccess       = "Success"
	TypeAuthFail      = "AuthFail"
	TypeNotAuthed     = "NotAuthed"
	TypeNotInChannel  = "NotInChannel"
	TypeNoSuchChannel = "NoSuchChannel"
	TypeJoined        = "Joined"
	TypeLeft          = "Left"
	TypeChannels      = "Channels"
	TypeFormatError   = "FormatError"
)

var eventTypes = []string{
	TypeSuccess, TypeAuthFail, TypeNotAuthed, TypeNotInChannel, TypeNoSuchChannel,
	TypeJoined, TypeLeft, TypeChannelInfo, TypeChannels, TypeMessage, TypeFormatError,
}

// Event is an outbound message, either a direct reply or a channel
// broadcast.
type Event interface {
	Type() string
	isEvent()
}

// Success acknowledges a request.
type Success struct{}

// AuthFail rejects a login whose password does not match.
type AuthFail struct{}

// NotAuthed rejects a request that needs a logged-in session.
type NotAuthed struct{}

// NotInChannel rejects a message to a channel the sender has not joined.
type NotInChannel struct{}

// NoSuchChannel answers a query on a channel nobody ever joined.
type NoSuchChannel struct{}

// Joined is broadcast to a channel when a user joins it.
type Joined struct {
	Channel  string `json:"channel"`
	Username string `json:"username"`
}

// Left is broadcast to a channel when a user leaves it.
type Left struct {
	Channel  string `json:"channel"`
	Username string `json:"username"`
}

// ChannelInfo lists the current members of a channel.
type ChannelInfo struct {
	Members []string `json:"members"`
}

// Channels lists channel names.
type Channels struct {
	Channels []string `json:"channels"`
}

// Message is a chat line broadcast to every member of a channel.
type Message struct {
	Channel  string `json:"channel"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

// FormatError reports an inbound frame that could not be decoded.
type FormatError struct {
	Error string `json:"error"`
}

func (Success) Type() string       { return TypeSuccess }
func (AuthFail) Type() string      { return TypeAuthFail }
func (NotAuthed) Type() string     { return TypeNotAuthed }
func (NotInChannel) Type() string  { return TypeNotInChannel }
func (NoSuchChannel) Type() string { return TypeNoSuchChannel }
func (Joined) Type() string        { return TypeJoined }
func (Left) Type() string          { return TypeLeft }
func (ChannelInfo) Type() string   { return TypeChannelInfo }
func (Channels) Type() string      { return TypeChannels }
func (Message) Type() string       { return TypeMessage }
func (FormatError) Type() string   { return TypeFormatError }

func (Success) isEvent()       {}
func (AuthFail) isEvent()      {}
func (NotAuthed) isEvent()     {}
func (NotInChannel) isEvent()  {}
func (NoSuchChannel) isEvent() {}
func (Joined) isEvent()        {}
func (Left) isEvent()          {}
func (ChannelInfo) isEvent()   {}
func (Channels) isEvent()      {}
func (Message) isEvent()       {}
func (FormatError) isEvent()   {}

func (e Success) MarshalJSON() ([]byte, error)       { return withType(e.Type(), struct{}{}) }
func (e AuthFail) MarshalJSON() ([]byte, error)      { return withType(e.Type(), struct{}{}) }
func (e NotAuthed) MarshalJSON() ([]byte, error)     { return withType(e.Type(), struct{}{}) }
func (e NotInChannel) MarshalJSON() ([]byte, error)  { return withType(e.Type(), struct{}{}) }
func (e NoSuchChannel) MarshalJSON() ([]byte, error) { return withType(e.Type(), struct{}{}) }

func (e Joined) MarshalJSON() ([]byte, error) {
	type fields Joined
	return withType(e.Type(), fields(e))
}

func (e Left) MarshalJSON() ([]byte, error) {
	type fields Left
	return withType(e.Type(), fields(e))
}

func (e ChannelInfo) MarshalJSON() ([]byte, error) {
	type fields ChannelInfo
	if e.Members == nil {
		e.Members = []string{}
	}
	return withType(e.Type(), fields(e))
}

func (e Channels) MarshalJSON() ([]byte, error) {
	type fields Channels
	if e.Channels == nil {
		e.Channels = []string{}
	}
	return withType(e.Type(), fields(e))
}

func (e Message) MarshalJSON() ([]byte, error) {
	type fields Message
	return withType(e.Type(), fields(e))
}

func (e FormatError) MarshalJSON() ([]byte, error) {
	type fields FormatError
	return withType(e.Type(), fields(e))
}

// Encode renders an event as a wire frame.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses an outbound frame. Servers never call it; it exists
// for clients and tests.
func DecodeEvent(data []byte) (Event, error) {
	kind, fields, err := envelope(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case TypeSuccess:
		return Success{}, nil
	case TypeAuthFail:
		return AuthFail{}, nil
	case TypeNotAuthed:
		return NotAuthed{}, nil
	case TypeNotInChannel:
		return NotInChannel{}, nil
	case TypeNoSuchChannel:
		return NoSuchChannel{}, nil
	case TypeJoined:
		var e Joined
		err = decodeVariant(kind, data, fields, &e, "channel", "username")
		return e, err
	case TypeLeft:
		var e Left
		err = decodeVariant(kind, data, fields, &e, "channel", "username")
		return e, err
	case TypeChannelInfo:
		var e ChannelInfo
		err = decodeVariant(kind, data, fields, &e, "members")
		return e, err
	case TypeChannels:
		var e Channels
		err = decodeVariant(kind, data, fields, &e, "channels")
		return e, err
	case TypeMessage:
		var e Message
		err = decodeVariant(kind, data, fields, &e, "channel", "username", "text")
		return e, err
	case TypeFormatError:
		var e FormatError
		err = decodeVariant(kind, data, fields, &e, "error")
		return e, err
	default:
		return nil, unknownVariant(kind, eventTypes)
	}
}
