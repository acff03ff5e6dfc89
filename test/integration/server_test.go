package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Tyrowin/chanrelay/internal/protocol"
	"github.com/Tyrowin/chanrelay/test/testhelpers"
)

// TestHealthEndpointIntegration tests the health endpoints over a real listener.
func TestHealthEndpointIntegration(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)

	resp := testhelpers.MakeRequest(t, http.MethodGet, relay.HTTP.URL+"/")
	defer func() { _ = resp.Body.Close() }()
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	testhelpers.AssertContentType(t, resp, "text/plain")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if string(body) != "chanrelay server is running" {
		t.Errorf("unexpected health body %q", body)
	}

	healthz := testhelpers.MakeRequest(t, http.MethodGet, relay.HTTP.URL+"/healthz")
	defer func() { _ = healthz.Body.Close() }()
	testhelpers.AssertStatusCode(t, healthz, http.StatusOK)
}

func TestWebSocketEndpointRejectsPOST(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)

	resp := testhelpers.MakeRequest(t, http.MethodPost, relay.HTTP.URL+"/ws")
	defer func() { _ = resp.Body.Close() }()
	testhelpers.AssertStatusCode(t, resp, http.StatusMethodNotAllowed)
}

// TestMetricsEndpointReflectsTraffic checks that relay activity shows up
// in the Prometheus exposition.
func TestMetricsEndpointReflectsTraffic(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)

	alice := relay.Login(t, "alice", "pw")
	alice.Send(protocol.JoinRequest{Channel: "general"})
	alice.Expect(protocol.Success{})
	alice.Send(protocol.MessageRequest{Channel: "general", Text: "hi"})
	alice.Expect(protocol.Message{Channel: "general", Username: "alice", Text: "hi"}, protocol.Success{})

	resp := testhelpers.MakeRequest(t, http.MethodGet, relay.HTTP.URL+"/metrics")
	defer func() { _ = resp.Body.Close() }()
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	for _, want := range []string{
		"chanrelay_connections_active 1\n",
		"chanrelay_registrations_total 1\n",
		"chanrelay_messages_relayed_total 1\n",
		"chanrelay_users 1\n",
		"chanrelay_channels 1\n",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestTestPageServed(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)

	resp := testhelpers.MakeRequest(t, http.MethodGet, relay.HTTP.URL+"/test")
	defer func() { _ = resp.Body.Close() }()
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	testhelpers.AssertContentType(t, resp, "text/html")
}
