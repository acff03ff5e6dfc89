package protocol

import "encoding/json"

// Inbound variant names.
const (
	TypeLogout         = "Logout"
	TypeLogin          = "Login"
	TypeJoin           = "Join"
	TypeLeave          = "Leave"
	TypeChannelInfo    = "ChannelInfo"
	TypeJoinedChannels = "JoinedChannels"
	TypeAllChannels    = "AllChannels"
	TypeMessage        = "Message"
)

var requestTypes = []string{
	TypeLogout, TypeLogin, TypeJoin, TypeLeave,
	TypeChannelInfo, TypeJoinedChannels, TypeAllChannels, TypeMessage,
}

// Request is a decoded inbound message.
type Request interface {
	Type() string
	isRequest()
}

// LogoutRequest drops the session back to anonymous.
type LogoutRequest struct{}

// LoginRequest authenticates, registering the username on first use.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JoinRequest adds the session's user to a channel.
type JoinRequest struct {
	Channel string `json:"channel"`
}

// LeaveRequest removes the session's user from a channel.
type LeaveRequest struct {
	Channel string `json:"channel"`
}

// ChannelInfoRequest asks for the members of a channel.
type ChannelInfoRequest struct {
	Channel string `json:"channel"`
}

// JoinedChannelsRequest asks for the channels the user has joined.
type JoinedChannelsRequest struct{}

// AllChannelsRequest asks for every channel known to the server.
type AllChannelsRequest struct{}

// MessageRequest broadcasts text to a channel the user is a member of.
type MessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

func (LogoutRequest) Type() string         { return TypeLogout }
func (LoginRequest) Type() string          { return TypeLogin }
func (JoinRequest) Type() string           { return TypeJoin }
func (LeaveRequest) Type() string          { return TypeLeave }
func (ChannelInfoRequest) Type() string    { return TypeChannelInfo }
func (JoinedChannelsRequest) Type() string { return TypeJoinedChannels }
func (AllChannelsRequest) Type() string    { return TypeAllChannels }
func (MessageRequest) Type() string        { return TypeMessage }

func (LogoutRequest) isRequest()         {}
func (LoginRequest) isRequest()          {}
func (JoinRequest) isRequest()           {}
func (LeaveRequest) isRequest()          {}
func (ChannelInfoRequest) isRequest()    {}
func (JoinedChannelsRequest) isRequest() {}
func (AllChannelsRequest) isRequest()    {}
func (MessageRequest) isRequest()        {}

func (r LogoutRequest) MarshalJSON() ([]byte, error) { return withType(r.Type(), struct{}{}) }

func (r LoginRequest) MarshalJSON() ([]byte, error) {
	type fields LoginRequest
	return withType(r.Type(), fields(r))
}

func (r JoinRequest) MarshalJSON() ([]byte, error) {
	type fields JoinRequest
	return withType(r.Type(), fields(r))
}

func (r LeaveRequest) MarshalJSON() ([]byte, error) {
	type fields LeaveRequest
	return withType(r.Type(), fields(r))
}

func (r ChannelInfoRequest) MarshalJSON() ([]byte, error) {
	type fields ChannelInfoRequest
	return withType(r.Type(), fields(r))
}

func (r JoinedChannelsRequest) MarshalJSON() ([]byte, error) {
	return withType(r.Type(), struct{}{})
}

func (r AllChannelsRequest) MarshalJSON() ([]byte, error) {
	return withType(r.Type(), struct{}{})
}

func (r MessageRequest) MarshalJSON() ([]byte, error) {
	type fields MessageRequest
	return withType(r.Type(), fields(r))
}

// Decode parses one inbound frame. Any failure is returned as a
// *DecodeError whose message is suitable for a FormatError reply.
func Decode(data []byte) (Request, error) {
	kind, fields, err := envelope(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case TypeLogout:
		return LogoutRequest{}, nil
	case TypeLogin:
		var r LoginRequest
		if err := decodeVariant(kind, data, fields, &r, "username", "password"); err != nil {
			return nil, err
		}
		return r, nil
	case TypeJoin:
		var r JoinRequest
		if err := decodeVariant(kind, data, fields, &r, "channel"); err != nil {
			return nil, err
		}
		return r, nil
	case TypeLeave:
		var r LeaveRequest
		if err := decodeVariant(kind, data, fields, &r, "channel"); err != nil {
			return nil, err
		}
		return r, nil
	case TypeChannelInfo:
		var r ChannelInfoRequest
		if err := decodeVariant(kind, data, fields, &r, "channel"); err != nil {
			return nil, err
		}
		return r, nil
	case TypeJoinedChannels:
		return JoinedChannelsRequest{}, nil
	case TypeAllChannels:
		return AllChannelsRequest{}, nil
	case TypeMessage:
		var r MessageRequest
		if err := decodeVariant(kind, data, fields, &r, "channel", "text"); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, unknownVariant(kind, requestTypes)
	}
}

// EncodeRequest renders a request as a wire frame.
func EncodeRequest(r Request) ([]byte, error) {
	return json.Marshal(r)
}
