package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Tyrowin/chanrelay/internal/protocol"
)

var errEmptyLine = errors.New("empty line")

const usage = `commands:
  /login <username> <password>
  /logout
  /join <channel>
  /leave <channel>
  /info <channel>
  /joined
  /all
  /msg <channel> <text...>
  {...}   send a raw JSON frame`

// parseLine turns one line of user input into the frame to send.
func parseLine(line string) ([]byte, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errEmptyLine
	}
	if strings.HasPrefix(line, "{") {
		return []byte(line), nil
	}
	if !strings.HasPrefix(line, "/") {
		return nil, fmt.Errorf("unrecognized input %q", line)
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	var req protocol.Request
	switch cmd {
	case "login":
		if len(args) != 2 {
			return nil, errors.New("usage: /login <username> <password>")
		}
		req = protocol.LoginRequest{Username: args[0], Password: args[1]}
	case "logout":
		req = protocol.LogoutRequest{}
	case "join", "leave", "info":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: /%s <channel>", cmd)
		}
		switch cmd {
		case "join":
			req = protocol.JoinRequest{Channel: args[0]}
		case "leave":
			req = protocol.LeaveRequest{Channel: args[0]}
		default:
			req = protocol.ChannelInfoRequest{Channel: args[0]}
		}
	case "joined":
		req = protocol.JoinedChannelsRequest{}
	case "all":
		req = protocol.AllChannelsRequest{}
	case "msg":
		channel, text, ok := strings.Cut(rest, " ")
		if !ok || channel == "" {
			return nil, errors.New("usage: /msg <channel> <text...>")
		}
		req = protocol.MessageRequest{Channel: channel, Text: strings.TrimLeft(text, " ")}
	default:
		return nil, fmt.Errorf("unknown command /%s", cmd)
	}
	return protocol.EncodeRequest(req)
}

// formatEvent renders a server frame for the terminal.
func formatEvent(frame []byte) string {
	ev, err := protocol.DecodeEvent(frame)
	if err != nil {
		return fmt.Sprintf("?? %s (%v)", frame, err)
	}

	switch e := ev.(type) {
	case protocol.Joined:
		return fmt.Sprintf("[%s] * %s joined", e.Channel, e.Username)
	case protocol.Left:
		return fmt.Sprintf("[%s] * %s left", e.Channel, e.Username)
	case protocol.Message:
		return fmt.Sprintf("[%s] <%s> %s", e.Channel, e.Username, e.Text)
	case protocol.ChannelInfo:
		return "members: " + strings.Join(e.Members, ", ")
	case protocol.Channels:
		return "channels: " + strings.Join(e.Channels, ", ")
	case protocol.FormatError:
		return "format error: " + e.Error
	default:
		return ev.Type()
	}
}
