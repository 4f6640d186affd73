package events

// Event enumerates the topics the engine publishes to its external
// observability sink.
type Event string

const (
	EventTickStarted      Event = "tick.started"
	EventTickCompleted    Event = "tick.completed"
	EventQuoteReceived    Event = "quote.received"
	EventQuoteRejected    Event = "quote.rejected"
	EventStrategyEvaluated Event = "strategy.evaluated"
	EventTradePlanned     Event = "trade.planned"
	EventTradeSubmitted   Event = "trade.submitted"
	EventTradeSettled     Event = "trade.settled"
	EventBridgeSubmitted  Event = "bridge.submitted"
	EventBridgeSettled    Event = "bridge.settled"
	EventInventoryRefreshed Event = "inventory.refreshed"
	EventStatePersisted   Event = "state.persisted"
	EventErrorNetwork     Event = "error.network"
	EventErrorValidation  Event = "error.validation"
	EventErrorExecution   Event = "error.execution"
	EventErrorExternal    Event = "error.external"
	EventErrorSystem      Event = "error.system"
)

// TickCompletedPayload is published when a scheduler tick finishes.
type TickCompletedPayload struct {
	DurationMs    int64
	ExecutedCount int
}

// QuoteRejectedPayload explains why a validator rejected a quote.
type QuoteRejectedPayload struct {
	Venue   string
	Reasons []string
}

// StrategyEvaluatedPayload summarises one strategy's evaluation outcome.
type StrategyEvaluatedPayload struct {
	Token      string
	StrategyID string
	NetEdgeBps int
	Proceed    bool
}
