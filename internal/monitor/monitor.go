// Package monitor forwards bus events an operator should see to an
// external sink. Delivery itself (Slack, PagerDuty, email) is out of
// scope; only the subscribe-and-format plumbing lives here. It watches
// every error topic plus settled trades and settled bridges.
package monitor

import (
	"context"
	"fmt"
	"time"

	"arb-core/internal/events"
)

// watchedTopics are the events worth surfacing to an operator; routine
// ticks and per-quote noise are deliberately excluded.
var watchedTopics = []events.Event{
	events.EventErrorNetwork,
	events.EventErrorValidation,
	events.EventErrorExecution,
	events.EventErrorExternal,
	events.EventErrorSystem,
	events.EventTradeSettled,
	events.EventBridgeSettled,
}

// Monitor subscribes to the watched topics and forwards formatted alerts
// to Sink.
type Monitor struct {
	Bus  *events.Bus
	Sink AlertSink
}

// New constructs a Monitor. A nil Sink makes Start a no-op.
func New(bus *events.Bus, sink AlertSink) *Monitor {
	return &Monitor{Bus: bus, Sink: sink}
}

// Start subscribes to every watched topic and forwards payloads to Sink
// until ctx is cancelled. Each topic gets its own goroutine so one slow
// Sink.Send doesn't delay delivery on another topic.
func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Sink == nil {
		return
	}
	for _, topic := range watchedTopics {
		stream, unsub := m.Bus.Subscribe(topic, 50)
		go m.forward(ctx, topic, stream, unsub)
	}
}

func (m *Monitor) forward(ctx context.Context, topic events.Event, stream <-chan any, unsub func()) {
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-stream:
			if !ok {
				return
			}
			if err := m.Sink.Send(formatAlert(topic, payload)); err != nil {
				continue // best-effort delivery; a dropped alert never blocks the engine
			}
		}
	}
}

func formatAlert(topic events.Event, payload any) string {
	return fmt.Sprintf("[%s] %s: %v", time.Now().UTC().Format(time.RFC3339), topic, payload)
}
