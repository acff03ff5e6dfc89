// Package testhelpers provides common utilities for the chanrelay
// integration tests: a running relay behind httptest, websocket clients
// that speak the protocol, and HTTP assertions.
package testhelpers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/chanrelay/internal/protocol"
	"github.com/Tyrowin/chanrelay/internal/server"
)

// TestOrigin is the browser origin test clients present.
const TestOrigin = "http://localhost:3012"

// ReadTimeout bounds every expected read.
const ReadTimeout = 2 * time.Second

// Relay is a running chanrelay instance.
type Relay struct {
	Server *server.Server
	HTTP   *httptest.Server
}

// StartRelay starts a relay on a loopback port. customize may adjust the
// default configuration. Everything is torn down when the test ends.
func StartRelay(t *testing.T, customize func(cfg *server.Config)) *Relay {
	t.Helper()

	cfg := server.DefaultConfig()
	cfg.AllowedOrigins = []string{TestOrigin}
	if customize != nil {
		customize(&cfg)
	}

	srv := server.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv.Start()
	httpServer := httptest.NewServer(srv.Routes())

	t.Cleanup(func() {
		httpServer.Close()
		_ = srv.Shutdown()
	})
	return &Relay{Server: srv, HTTP: httpServer}
}

// WebSocketURL returns the relay's ws:// endpoint.
func (r *Relay) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(r.HTTP.URL, "http") + "/ws"
}

// WaitForConnections polls until the hub holds n clients.
func (r *Relay) WaitForConnections(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(ReadTimeout)
	for r.Server.Hub().Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connections, have %d", n, r.Server.Hub().Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Client is a protocol-speaking websocket test client. A background
// goroutine owns every read from Conn, so waiting for an event never
// sets a read deadline on the connection; a timed-out wait leaves Conn
// usable. Tests may write to Conn directly but must not read from it.
type Client struct {
	t      *testing.T
	Conn   *websocket.Conn
	frames chan inbound
	done   chan struct{}
}

type inbound struct {
	messageType int
	data        []byte
	err         error
}

func newClient(t *testing.T, conn *websocket.Conn) *Client {
	c := &Client{
		t:      t,
		Conn:   conn,
		frames: make(chan inbound, 256),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// readLoop forwards frames until the connection fails; the final read
// error is forwarded too, then frames is closed.
func (c *Client) readLoop() {
	defer close(c.frames)
	for {
		messageType, data, err := c.Conn.ReadMessage()
		select {
		case c.frames <- inbound{messageType: messageType, data: data, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// ConnectWebSocket dials url with the given Origin header (omitted when
// empty). It returns the connection, the handshake response and any error.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Connect opens a client to r and closes it when the test ends.
func (r *Relay) Connect(t *testing.T) *Client {
	t.Helper()
	conn, _, err := ConnectWebSocket(r.WebSocketURL(), TestOrigin)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	c := newClient(t, conn)
	t.Cleanup(func() {
		close(c.done)
		_ = conn.Close()
	})
	return c
}

// Login connects and logs in, consuming the Success reply.
func (r *Relay) Login(t *testing.T, username, password string) *Client {
	t.Helper()
	c := r.Connect(t)
	c.Send(protocol.LoginRequest{Username: username, Password: password})
	c.Expect(protocol.Success{})
	return c
}

// Send encodes and writes req.
func (c *Client) Send(req protocol.Request) {
	c.t.Helper()
	frame, err := protocol.EncodeRequest(req)
	if err != nil {
		c.t.Fatalf("Failed to encode %s: %v", req.Type(), err)
	}
	c.SendRaw(websocket.TextMessage, frame)
}

// SendRaw writes one frame as-is.
func (c *Client) SendRaw(messageType int, data []byte) {
	c.t.Helper()
	if err := c.Conn.WriteMessage(messageType, data); err != nil {
		c.t.Fatalf("Failed to send frame: %v", err)
	}
}

// Next waits up to ReadTimeout for the next event and decodes it.
func (c *Client) Next() protocol.Event {
	c.t.Helper()
	var in inbound
	select {
	case got, ok := <-c.frames:
		if !ok {
			c.t.Fatal("Failed to read event: connection already closed")
		}
		in = got
	case <-time.After(ReadTimeout):
		c.t.Fatalf("Failed to read event: none within %s", ReadTimeout)
	}
	if in.err != nil {
		c.t.Fatalf("Failed to read event: %v", in.err)
	}
	if in.messageType != websocket.TextMessage {
		c.t.Fatalf("Expected a text frame, got type %d", in.messageType)
	}
	ev, err := protocol.DecodeEvent(in.data)
	if err != nil {
		c.t.Fatalf("Server sent an undecodable frame %s: %v", in.data, err)
	}
	return ev
}

// Expect reads the next events and compares them, in order, with want.
func (c *Client) Expect(want ...protocol.Event) {
	c.t.Helper()
	for i, w := range want {
		got := c.Next()
		if !SameEvent(got, w) {
			c.t.Fatalf("event %d: got %s, want %s", i, mustEncode(c.t, got), mustEncode(c.t, w))
		}
	}
}

// ExpectNothing asserts that no frame arrives within timeout. The client
// stays usable afterwards, so it may be called mid-conversation.
func (c *Client) ExpectNothing(timeout time.Duration) {
	c.t.Helper()
	select {
	case in, ok := <-c.frames:
		switch {
		case !ok:
			c.t.Fatal("Expected no event, but the connection is already closed")
		case in.err != nil:
			c.t.Fatalf("Unexpected error while waiting for absence of events: %v", in.err)
		default:
			c.t.Fatalf("Expected no event, but received %s", in.data)
		}
	case <-time.After(timeout):
	}
}

// ExpectClosed asserts that the server closes the connection within
// ReadTimeout. Frames still queued before the close are discarded.
func (c *Client) ExpectClosed() {
	c.t.Helper()
	deadline := time.After(ReadTimeout)
	for {
		select {
		case in, ok := <-c.frames:
			if !ok || in.err != nil {
				return
			}
		case <-deadline:
			c.t.Fatal("connection was not closed by the server")
		}
	}
}

// SameEvent compares two events by their wire encoding.
func SameEvent(a, b protocol.Event) bool {
	ea, errA := protocol.Encode(a)
	eb, errB := protocol.Encode(b)
	return errA == nil && errB == nil && string(ea) == string(eb)
}

func mustEncode(t *testing.T, e protocol.Event) string {
	t.Helper()
	frame, err := protocol.Encode(e)
	if err != nil {
		t.Fatalf("Failed to encode %s: %v", e.Type(), err)
	}
	return string(frame)
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response Content-Type starts with expected.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, expected) {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}
