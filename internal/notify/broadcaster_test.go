package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udms-pro/udms/internal/shared"
)

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward; fire controls whether due timers run.
func (c *manualClock) Advance(d time.Duration, fire bool) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	if fire {
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(c.now) {
				t.fired = true
				due = append(due, t)
			}
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

func TestNotificationExpiresExactlyAtTTL(t *testing.T) {
	clock := newManualClock()
	b := New(Options{Clock: clock})
	n := b.Broadcast("Saved", "Room updated", shared.TabRooms)
	assert.Equal(t, DefaultTTL, n.ExpiresAt.Sub(n.CreatedAt))

	clock.Advance(DefaultTTL-time.Millisecond, true)
	require.Len(t, b.Live(), 1)

	clock.Advance(time.Millisecond, true)
	assert.Empty(t, b.Live())
	assert.Zero(t, b.Pending())
}

func TestLiveHidesExpiredWhenTimerIsLate(t *testing.T) {
	clock := newManualClock()
	b := New(Options{Clock: clock})
	b.Broadcast("Late", "timer has not fired", "")
	clock.Advance(DefaultTTL, false)
	assert.Empty(t, b.Live())
	assert.Equal(t, 1, b.Pending())
}

func TestBroadcastNewestFirstWithoutDedup(t *testing.T) {
	clock := newManualClock()
	b := New(Options{Clock: clock})
	first := b.Broadcast("Same", "same", "")
	clock.Advance(time.Second, true)
	second := b.Broadcast("Same", "same", "")
	live := b.Live()
	require.Len(t, live, 2)
	assert.Equal(t, second.ID, live[0].ID)
	assert.Equal(t, first.ID, live[1].ID)
	assert.NotEqual(t, first.ID, second.ID)

	clock.Advance(DefaultTTL-time.Second, true)
	live = b.Live()
	require.Len(t, live, 1)
	assert.Equal(t, second.ID, live[0].ID)
}

func TestKinds(t *testing.T) {
	b := New(Options{Clock: newManualClock()})
	assert.Equal(t, KindAlert, b.Alert("Security", "lockdown", shared.TabDashboard).Kind)
	rej := b.Reject("❌ ACCESS DENIED", "nope")
	assert.Equal(t, KindRejection, rej.Kind)
	assert.Empty(t, rej.Target)
}

func TestDismissAndReset(t *testing.T) {
	clock := newManualClock()
	b := New(Options{Clock: clock})
	a := b.Broadcast("a", "", "")
	b.Broadcast("b", "", "")
	assert.True(t, b.Dismiss(a.ID))
	assert.False(t, b.Dismiss(a.ID))
	require.Len(t, b.Live(), 1)

	b.Broadcast("c", "", "")
	b.Reset()
	assert.Empty(t, b.Live())
	assert.Zero(t, b.Pending())
	clock.mu.Lock()
	for _, tm := range clock.timers {
		assert.True(t, tm.stopped, "timer left running after reset")
	}
	clock.mu.Unlock()

	clock.Advance(DefaultTTL, true)
	assert.Empty(t, b.Live())
}

type recordingRelay struct {
	got chan Notification
	err error
}

func (r *recordingRelay) Relay(_ context.Context, n Notification) error {
	r.got <- n
	return r.err
}

func TestRelayIsFireAndForget(t *testing.T) {
	relay := &recordingRelay{got: make(chan Notification, 1), err: errors.New("queue down")}
	var observed []Notification
	b := New(Options{Clock: newManualClock(), Relay: relay, OnBroadcast: func(n Notification) { observed = append(observed, n) }})
	n := b.Alert("Security", "EMERGENCY", shared.TabDashboard)
	select {
	case got := <-relay.got:
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("relay not invoked")
	}
	require.Len(t, observed, 1)
	assert.Len(t, b.Live(), 1)
}

type blockingRelay struct {
	started chan struct{}
	ended   chan error
}

func (r *blockingRelay) Relay(ctx context.Context, _ Notification) error {
	close(r.started)
	<-ctx.Done()
	r.ended <- ctx.Err()
	return ctx.Err()
}

func TestResetCancelsInFlightRelay(t *testing.T) {
	relay := &blockingRelay{started: make(chan struct{}), ended: make(chan error, 1)}
	b := New(Options{Clock: newManualClock(), Relay: relay, RelayTimeout: time.Minute})
	b.Broadcast("Payment Success", "Ledger updated.", shared.TabPayments)

	select {
	case <-relay.started:
	case <-time.After(time.Second):
		t.Fatal("relay not invoked")
	}
	b.Reset()

	select {
	case err := <-relay.ended:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay outlived reset")
	}
}
