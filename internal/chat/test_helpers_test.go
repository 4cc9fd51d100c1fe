package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ChristianSeip/SimpleChat-Server/internal/proto"
)

var errConnClosed = errors.New("connection closed")

// fakeConn records delivered frames and can simulate dead or failing
// connections.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	open     bool
	failSend bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true}
}

func (f *fakeConn) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open || f.failSend {
		return errConnClosed
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	f.frames = append(f.frames, buf)
	return nil
}

func (f *fakeConn) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

// received decodes all frames delivered to the connection so far.
func (f *fakeConn) received(t *testing.T) []proto.Inbound {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]proto.Inbound, 0, len(f.frames))
	for _, frame := range f.frames {
		var env proto.Inbound
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("undecodable frame %q: %v", frame, err)
		}
		out = append(out, env)
	}
	return out
}

// countEvent counts delivered frames carrying the given event name.
func (f *fakeConn) countEvent(t *testing.T, event string) int {
	t.Helper()

	n := 0
	for _, env := range f.received(t) {
		if env.Event == event {
			n++
		}
	}
	return n
}

// lastEvent returns the payload of the most recent frame with the given
// event name, or false when none was delivered.
func (f *fakeConn) lastEvent(t *testing.T, event string) (json.RawMessage, bool) {
	t.Helper()

	envs := f.received(t)
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Event == event {
			return envs[i].Data, true
		}
	}
	return nil, false
}
