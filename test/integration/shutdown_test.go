package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/Tyrowin/chanrelay/internal/protocol"
	"github.com/Tyrowin/chanrelay/test/testhelpers"
)

// TestGracefulShutdownWithClients verifies that active connections are
// closed and the hub drains when the server shuts down.
func TestGracefulShutdownWithClients(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)

	const numClients = 5
	clients := make([]*testhelpers.Client, numClients)
	for i := range clients {
		clients[i] = relay.Connect(t)
	}
	clients[0].Send(protocol.LoginRequest{Username: "alice", Password: "pw"})
	clients[0].Expect(protocol.Success{})
	relay.WaitForConnections(t, numClients)

	if err := relay.Server.Shutdown(); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	for _, c := range clients {
		c.ExpectClosed()
	}
	if got := relay.Server.Hub().Count(); got != 0 {
		t.Errorf("hub still holds %d clients", got)
	}
	if _, ok := relay.Server.Relay().Connections.Lookup("alice"); ok {
		t.Error("alice is still routable after shutdown")
	}
}

func TestConnectionRefusedAfterShutdown(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)
	if err := relay.Server.Shutdown(); err != nil {
		t.Fatal(err)
	}

	// the listener is still up, but the hub no longer accepts clients
	conn, _, err := testhelpers.ConnectWebSocket(relay.WebSocketURL(), testhelpers.TestOrigin)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetReadDeadline(time.Now().Add(testhelpers.ReadTimeout)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection accepted after shutdown delivered a frame")
	}
	if relay.Server.Hub().Count() != 0 {
		t.Error("client registered after shutdown")
	}
}

func TestConcurrentShutdown(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)
	relay.Connect(t)
	relay.WaitForConnections(t, 1)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- relay.Server.Shutdown()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Shutdown returned error: %v", err)
		}
	}
}
