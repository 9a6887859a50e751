// Package notify fans out short-lived notifications to the active console
// session. Each notification expires after a fixed TTL on its own timer.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udms-pro/udms/internal/shared"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 6 * time.Second

// Kind classifies a notification for the UI.
type Kind string

// Notification kinds.
const (
	KindInfo      Kind = "info"
	KindAlert     Kind = "alert"
	KindRejection Kind = "rejection"
)

// Channel is the delivery medium shown next to the notification.
type Channel string

// Delivery channels.
const (
	ChannelPush  Channel = "PUSH"
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Notification is a transient, self-expiring message.
type Notification struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"content"`
	CreatedAt time.Time  `json:"timestamp"`
	ExpiresAt time.Time  `json:"expiresAt"`
	Target    shared.Tab `json:"targetTab,omitempty"`
	Kind      Kind       `json:"kind"`
	Channel   Channel    `json:"type"`
}

// Relay forwards notifications to an out-of-process delivery channel.
type Relay interface {
	Relay(ctx context.Context, n Notification) error
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so expiry can be tested deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Options configures a Broadcaster.
type Options struct {
	TTL          time.Duration
	Clock        Clock
	Relay        Relay
	RelayTimeout time.Duration
	Logger       *slog.Logger
	NewID        func() string
	// OnBroadcast observes every created notification, e.g. for metrics.
	OnBroadcast func(Notification)
}

// Broadcaster owns the live notification queue.
type Broadcaster struct {
	mu     sync.Mutex
	live   []Notification
	timers map[string]Timer
	// relayCtx bounds in-flight relays; Reset cancels it.
	relayCtx    context.Context
	cancelRelay context.CancelFunc

	ttl          time.Duration
	clock        Clock
	relay        Relay
	relayTimeout time.Duration
	logger       *slog.Logger
	newID        func() string
	onBroadcast  func(Notification)
}

// New constructs a Broadcaster.
func New(opts Options) *Broadcaster {
	b := &Broadcaster{
		timers:       make(map[string]Timer),
		ttl:          opts.TTL,
		clock:        opts.Clock,
		relay:        opts.Relay,
		relayTimeout: opts.RelayTimeout,
		logger:       opts.Logger,
		newID:        opts.NewID,
		onBroadcast:  opts.OnBroadcast,
	}
	if b.ttl <= 0 {
		b.ttl = DefaultTTL
	}
	if b.clock == nil {
		b.clock = systemClock{}
	}
	if b.relayTimeout <= 0 {
		b.relayTimeout = 5 * time.Second
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.newID == nil {
		b.newID = uuid.NewString
	}
	b.relayCtx, b.cancelRelay = context.WithCancel(context.Background())
	return b
}

// Broadcast emits an informational notification.
func (b *Broadcaster) Broadcast(title, body string, target shared.Tab) Notification {
	return b.emit(title, body, target, KindInfo, ChannelPush)
}

// Alert emits a high-visibility notification, delivered by SMS as well.
func (b *Broadcaster) Alert(title, body string, target shared.Tab) Notification {
	return b.emit(title, body, target, KindAlert, ChannelSMS)
}

// Reject emits a rejection for a gated action that did not run.
func (b *Broadcaster) Reject(title, body string) Notification {
	return b.emit(title, body, "", KindRejection, ChannelPush)
}

func (b *Broadcaster) emit(title, body string, target shared.Tab, kind Kind, channel Channel) Notification {
	now := b.clock.Now()
	n := Notification{
		ID:        b.newID(),
		Title:     title,
		Body:      body,
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
		Target:    target,
		Kind:      kind,
		Channel:   channel,
	}

	b.mu.Lock()
	b.live = append([]Notification{n}, b.live...)
	b.timers[n.ID] = b.clock.AfterFunc(b.ttl, func() { b.expire(n.ID) })
	relayCtx := b.relayCtx
	b.mu.Unlock()

	if b.onBroadcast != nil {
		b.onBroadcast(n)
	}
	if b.relay != nil {
		go b.forward(relayCtx, n)
	}
	return n
}

func (b *Broadcaster) forward(parent context.Context, n Notification) {
	ctx, cancel := context.WithTimeout(parent, b.relayTimeout)
	defer cancel()
	if err := b.relay.Relay(ctx, n); err != nil {
		b.logger.Warn("notification relay failed", slog.String("notification_id", n.ID), slog.Any("error", err))
	}
}

func (b *Broadcaster) expire(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remove(id)
}

// remove drops id from the queue and cancels its timer. Callers hold b.mu.
func (b *Broadcaster) remove(id string) bool {
	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
	for i := range b.live {
		if b.live[i].ID == id {
			b.live = append(b.live[:i], b.live[i+1:]...)
			return true
		}
	}
	return false
}

// Live returns unexpired notifications, newest first. Entries whose TTL has
// elapsed are hidden even when their timer has not fired yet.
func (b *Broadcaster) Live() []Notification {
	now := b.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, 0, len(b.live))
	for _, n := range b.live {
		if now.Before(n.ExpiresAt) {
			out = append(out, n)
		}
	}
	return out
}

// Dismiss removes a notification before it expires.
func (b *Broadcaster) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remove(id)
}

// Reset cancels every pending timer and in-flight relay and empties the queue.
func (b *Broadcaster) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
	b.live = nil
	b.cancelRelay()
	b.relayCtx, b.cancelRelay = context.WithCancel(context.Background())
}

// Pending reports how many expiry timers are scheduled.
func (b *Broadcaster) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.timers)
}
