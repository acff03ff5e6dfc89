package relay

import (
	"sync"
	"testing"

	"github.com/Tyrowin/chanrelay/internal/protocol"
)

// recordingSink stands in for a live connection. Frames are kept in
// arrival order; refuse simulates a dead or saturated connection.
type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
	refuse bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{}
}

func (s *recordingSink) TrySend(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse {
		return false
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	return true
}

func (s *recordingSink) setRefuse(refuse bool) {
	s.mu.Lock()
	s.refuse = refuse
	s.mu.Unlock()
}

// drain returns and clears every decoded event received so far.
func (s *recordingSink) drain(t *testing.T) []protocol.Event {
	t.Helper()
	s.mu.Lock()
	frames := s.frames
	s.frames = nil
	s.mu.Unlock()

	events := make([]protocol.Event, 0, len(frames))
	for _, frame := range frames {
		ev, err := protocol.DecodeEvent(frame)
		if err != nil {
			t.Fatalf("sink received undecodable frame %s: %v", frame, err)
		}
		events = append(events, ev)
	}
	return events
}

// expectEvents drains the sink and compares it against want.
func (s *recordingSink) expectEvents(t *testing.T, want ...protocol.Event) {
	t.Helper()
	got := s.drain(t)
	if len(got) != len(want) {
		t.Fatalf("expected %d events %v, got %d: %v", len(want), want, len(got), got)
	}
	for i := range want {
		if !eventsEqual(got[i], want[i]) {
			t.Fatalf("event %d: expected %#v, got %#v", i, want[i], got[i])
		}
	}
}

func eventsEqual(a, b protocol.Event) bool {
	left, err := protocol.Encode(a)
	if err != nil {
		return false
	}
	right, err := protocol.Encode(b)
	if err != nil {
		return false
	}
	return string(left) == string(right)
}

type recordingObserver struct {
	mu         sync.Mutex
	logins     int
	registered int
	rejected   int
	malformed  int
	broadcasts []observedBroadcast
}

type observedBroadcast struct {
	eventType  string
	channel    string
	recipients int
	delivered  int
}

func (o *recordingObserver) LoginSucceeded(_ string, registered bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logins++
	if registered {
		o.registered++
	}
}

func (o *recordingObserver) LoginRejected(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected++
}

func (o *recordingObserver) FormatError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.malformed++
}

func (o *recordingObserver) Broadcast(eventType, channel string, recipients, delivered int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.broadcasts = append(o.broadcasts, observedBroadcast{eventType, channel, recipients, delivered})
}

func mustFrame(t *testing.T, req protocol.Request) []byte {
	t.Helper()
	frame, err := protocol.EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest(%#v): %v", req, err)
	}
	return frame
}
