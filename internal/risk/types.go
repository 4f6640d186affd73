package risk

import (
	"arb-core/internal/domain"
	"arb-core/internal/money"
)

// Config is the pre-trade gate's tunables, sourced from the trading config
// file's `trading` section.
type Config struct {
	MinEdgeBps        int
	ReverseMinEdgeBps int
	RiskBufferBps     int
	MaxPriceImpactBps int
	CooldownMinutes   int
	MaxDailyTrades    int
	BridgeCostUsd     float64
	TradesPerBridge   int
	FallbackRefUsdPrice *money.Amount
}

// Input is everything the risk manager needs to evaluate one strategy on
// one token for one tick.
type Input struct {
	Token          domain.TokenDescriptor
	Strategy       domain.Strategy
	Direction      domain.Direction
	PrimaryQuote   domain.Quote
	SecondaryQuote domain.Quote
	QuoteToRefRate money.Amount
	RefUsdPrice    *money.Amount
	InCooldown     bool
	MinEdgeBpsOverride *int
	DailyTradeCount int
	PrimaryBalance   money.Amount
	SecondaryBalance money.Amount
	RefBalance       money.Amount
}

// Decision is the risk manager's verdict: ShouldProceed iff Reasons is
// empty.
type Decision struct {
	ShouldProceed bool
	Reasons       []string
	Edge          domain.EdgeResult
}
