package chat

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, opts Options) (*Manager, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	opts.Clock = clock.Now
	opts.PresenceResetInterval = 0

	m, err := NewManager(opts)
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)

	return m, clock
}

type receivedEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func nextEvent(t *testing.T, sub *Subscriber) receivedEvent {
	t.Helper()

	select {
	case data, ok := <-sub.Send():
		require.True(t, ok, "subscriber queue closed")
		var ev receivedEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return receivedEvent{}
	}
}
