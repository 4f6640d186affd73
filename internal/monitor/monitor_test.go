package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arb-core/internal/events"
)

type fakeSink struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSink) Send(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func TestMonitor_ForwardsWatchedTopics(t *testing.T) {
	bus := events.NewBus()
	sink := &fakeSink{}
	m := New(bus, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	bus.Publish(events.EventErrorNetwork, "dial timeout")
	bus.Publish(events.EventTradeSettled, "trade settled")

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestMonitor_IgnoresUnwatchedTopics(t *testing.T) {
	bus := events.NewBus()
	sink := &fakeSink{}
	m := New(bus, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	bus.Publish(events.EventQuoteReceived, "some quote")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}

func TestMonitor_NilSinkIsNoop(t *testing.T) {
	bus := events.NewBus()
	m := New(bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.NotPanics(t, func() { m.Start(ctx) })

	bus.Publish(events.EventErrorSystem, "boom")
}
