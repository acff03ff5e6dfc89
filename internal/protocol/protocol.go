// Package protocol defines the JSON wire schema exchanged between relay
// clients and the server.
//
// Every frame carries exactly one JSON object whose "type" field selects
// the variant. Inbound frames decode to a Request, outbound frames are
// built from an Event. Both sides are closed sets: unknown variants are a
// decode error, never a panic.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodeError reports a frame that could not be mapped onto a known
// variant. Msg is the diagnostic sent back to the client.
type DecodeError struct {
	Msg string
}

func (e *DecodeError) Error() string {
	return e.Msg
}

func decodeErrorf(format string, args ...any) *DecodeError {
	return &DecodeError{Msg: fmt.Sprintf(format, args...)}
}

// withType marshals body and prepends the "type" discriminator.
func withType(kind string, body any) ([]byte, error) {
	fields, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(fields) + len(tag) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if len(fields) > 2 {
		buf.WriteByte(',')
		buf.Write(fields[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// envelope splits a frame into its discriminator and raw fields.
func envelope(data []byte) (string, map[string]json.RawMessage, error) {
	if !utf8.Valid(data) {
		return "", nil, decodeErrorf("payload is not valid UTF-8")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, &DecodeError{Msg: err.Error()}
	}
	if fields == nil {
		return "", nil, decodeErrorf("expected a JSON object, got null")
	}

	rawType, ok := fields["type"]
	if !ok {
		return "", nil, decodeErrorf(`missing field "type"`)
	}
	var kind string
	if err := json.Unmarshal(rawType, &kind); err != nil {
		return "", nil, decodeErrorf(`field "type" must be a string`)
	}
	return kind, fields, nil
}

// decodeVariant checks that every required field is present and then
// unmarshals the frame into dst.
func decodeVariant(kind string, data []byte, fields map[string]json.RawMessage, dst any, required ...string) error {
	for _, name := range required {
		raw, ok := fields[name]
		if !ok {
			return decodeErrorf("missing field %q for %s", name, kind)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return decodeErrorf("field %q for %s must not be null", name, kind)
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &DecodeError{Msg: err.Error()}
	}
	return nil
}

func unknownVariant(kind string, known []string) *DecodeError {
	return decodeErrorf("unknown variant %q, expected one of %s", kind, strings.Join(known, ", "))
}
