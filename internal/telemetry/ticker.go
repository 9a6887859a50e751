// Package telemetry drives the simulated sensor tick that occasionally
// highlights a room on the dashboard. It never touches audit or entity state.
package telemetry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Defaults for the simulated tick.
const (
	DefaultInterval    = 12 * time.Second
	DefaultProbability = 0.15
	DefaultHighlight   = 1500 * time.Millisecond
)

// Config tunes a Ticker.
type Config struct {
	Interval    time.Duration
	// Probability of a highlight per tick. Zero means DefaultProbability;
	// set Disabled to switch highlights off.
	Probability float64
	Highlight   time.Duration
	Disabled    bool
}

// Ticker emits a probabilistic highlight signal while its gate allows it.
type Ticker struct {
	cfg    Config
	gate   func() bool
	roll   func() float64
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	until    time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	signals  uint64
	onSignal func()
}

// Option configures a Ticker.
type Option func(*Ticker)

// WithRoll replaces the random source returning values in [0,1).
func WithRoll(fn func() float64) Option {
	return func(t *Ticker) { t.roll = fn }
}

// WithClock replaces the time source used for the highlight window.
func WithClock(fn func() time.Time) Option {
	return func(t *Ticker) { t.now = fn }
}

// WithSignalHook is called each time a highlight starts.
func WithSignalHook(fn func()) Option {
	return func(t *Ticker) { t.onSignal = fn }
}

// New builds a Ticker. gate reports whether ticks may fire right now; the
// console passes "session active and not locked".
func New(cfg Config, gate func() bool, logger *slog.Logger, opts ...Option) *Ticker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Probability <= 0 || cfg.Probability > 1 {
		cfg.Probability = DefaultProbability
	}
	if cfg.Highlight <= 0 {
		cfg.Highlight = DefaultHighlight
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Ticker{cfg: cfg, gate: gate, roll: rand.Float64, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the tick loop unless it is already running.
func (t *Ticker) Start(parent context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx, t.done)
}

// Stop cancels the loop, waits for it to exit and clears any highlight.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	t.mu.Lock()
	t.until = time.Time{}
	t.mu.Unlock()
}

// Running reports whether the loop is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Ticker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick evaluates one tick. It reports whether a highlight started.
func (t *Ticker) Tick() bool {
	if t.cfg.Disabled || (t.gate != nil && !t.gate()) {
		return false
	}
	if t.roll() >= t.cfg.Probability {
		return false
	}
	t.mu.Lock()
	t.until = t.now().Add(t.cfg.Highlight)
	t.signals++
	t.mu.Unlock()
	t.logger.Debug("telemetry highlight")
	if t.onSignal != nil {
		t.onSignal()
	}
	return true
}

// Highlighted reports whether a highlight window is open and the gate still allows it.
func (t *Ticker) Highlighted() bool {
	if t.gate != nil && !t.gate() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Before(t.until)
}

// Signals returns the number of highlights started.
func (t *Ticker) Signals() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.signals
}
