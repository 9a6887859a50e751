package telemetry

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickRespectsGateAndProbability(t *testing.T) {
	var open atomic.Bool
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	roll := 0.1
	tk := New(Config{}, open.Load, nil,
		WithRoll(func() float64 { return roll }),
		WithClock(func() time.Time { return now }),
	)

	assert.False(t, tk.Tick(), "closed gate must suppress ticks")
	assert.False(t, tk.Highlighted())

	open.Store(true)
	assert.True(t, tk.Tick())
	assert.True(t, tk.Highlighted())
	assert.EqualValues(t, 1, tk.Signals())

	now = now.Add(DefaultHighlight)
	assert.False(t, tk.Highlighted())

	roll = DefaultProbability
	assert.False(t, tk.Tick())
}

func TestHighlightHiddenWhenGateCloses(t *testing.T) {
	var open atomic.Bool
	open.Store(true)
	tk := New(Config{Probability: 1}, open.Load, nil, WithRoll(func() float64 { return 0 }))
	assert.True(t, tk.Tick())
	open.Store(false)
	assert.False(t, tk.Highlighted())
}

func TestStartStop(t *testing.T) {
	fired := make(chan struct{}, 8)
	tk := New(Config{Interval: time.Millisecond, Probability: 1}, func() bool { return true }, nil,
		WithRoll(func() float64 { return 0 }),
		WithSignalHook(func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		}),
	)
	tk.Start(context.Background())
	tk.Start(context.Background())
	assert.True(t, tk.Running())
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
	tk.Stop()
	assert.False(t, tk.Running())
	assert.False(t, tk.Highlighted())
	tk.Stop()
}

func TestZeroConfigUsesDefaultProbability(t *testing.T) {
	tk := New(Config{}, nil, nil, WithRoll(func() float64 { return DefaultProbability / 2 }))
	assert.True(t, tk.Tick())

	off := New(Config{Disabled: true}, nil, nil, WithRoll(func() float64 { return 0 }))
	assert.False(t, off.Tick())
	assert.EqualValues(t, 0, off.Signals())
}
