// Package domain holds the shared data model that flows between every
// component of the arbitrage engine: token descriptors, quotes, strategies,
// edge results, inventory snapshots, and the append-only logs.
package domain

import (
	"time"

	"arb-core/internal/money"
)

// Venue identifies one of the two trading venues.
type Venue string

const (
	VenuePrimary   Venue = "primary"
	VenueSecondary Venue = "secondary"
)

// Side is a trade op: a leg either buys or sells the token.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Direction is the arbitrage direction explored by a strategy.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// TokenDescriptor configures one tradeable token. Immutable within a tick;
// reloaded between ticks.
type TokenDescriptor struct {
	Symbol              string       `json:"symbol"`
	PrimaryMint         string       `json:"primaryMint"`
	SecondaryMint       string       `json:"secondaryMint"`
	Decimals            int32        `json:"decimals"`
	TradeSize           money.Amount `json:"tradeSize"`
	Enabled             bool         `json:"enabled"`
	PrimaryQuoteVia     string       `json:"primaryQuoteVia"`
	SecondaryQuoteVia   string       `json:"secondaryQuoteVia"`
	MinBalancePrimary   *money.Amount `json:"minBalancePrimary,omitempty"`
	MinBalanceSecondary *money.Amount `json:"minBalanceSecondary,omitempty"`
	CooldownMinutes     *int         `json:"cooldown,omitempty"`
	InventoryTarget     *money.Amount `json:"inventoryTarget,omitempty"`
	SchemaVersion       int          `json:"schemaVersion,omitempty"`
}

// QuoteToRefHint is the provider's own fallback rate hint, used only as the
// rate converter's last-resort resolution step.
type QuoteToRefHint struct {
	Rate money.Amount
	Set  bool
}

// Quote is an executable price returned by a QuoteProvider.
type Quote struct {
	Venue          Venue
	Symbol         string
	Side           Side
	TradeSize      money.Amount
	QuoteCurrency  string
	Price          money.Amount // quoteCurrency per unit of token
	PriceImpactBps int
	MinOutput      money.Amount
	Fees           money.Amount
	Timestamp      time.Time
	ExpiresAt      time.Time
	Liquidity      *money.Amount
	QuoteToRef     QuoteToRefHint
}

// Age returns how old the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration { return now.Sub(q.Timestamp) }

// Expired reports whether the quote has passed its expiry at the given time.
func (q Quote) Expired(now time.Time) bool { return !now.Before(q.ExpiresAt) }

// StrategySide describes one leg of a strategy.
type StrategySide struct {
	QuoteCurrency string `json:"quoteCurrency"`
	Op            Side   `json:"op"`
}

// Strategy is a choice of (direction, per-venue quote currency, per-venue
// operation) explored for a token.
type Strategy struct {
	ID            string       `json:"id"`
	PrimarySide   StrategySide `json:"primarySide"`
	SecondarySide StrategySide `json:"secondarySide"`
	Enabled       bool         `json:"enabled"`
	MinEdgeBps    *int         `json:"minEdgeBps,omitempty"`
	Priority      int          `json:"priority,omitempty"`
}

// WellFormed reports whether exactly one side buys and the other sells, as
// required for a strategy to describe a coherent arbitrage leg pair.
func (s Strategy) WellFormed() bool {
	return (s.PrimarySide.Op == SideBuy && s.SecondarySide.Op == SideSell) ||
		(s.PrimarySide.Op == SideSell && s.SecondarySide.Op == SideBuy)
}

// Direction derives the arbitrage direction from the strategy's sides:
// selling on primary and buying on secondary is forward; the mirror is
// reverse.
func (s Strategy) Direction() Direction {
	if s.PrimarySide.Op == SideSell {
		return DirectionForward
	}
	return DirectionReverse
}

// EdgeResult is the direction-agnostic profitability computation for one
// strategy evaluation.
type EdgeResult struct {
	Direction          Direction
	Income             money.Amount
	Expense            money.Amount
	BridgeCost         money.Amount
	RiskBuffer         money.Amount
	NetEdge            money.Amount
	NetEdgeBps         int
	PrimaryImpactBps   int
	SecondaryImpactBps int
	SellSide           Venue
	BuySide            Venue
	Profitable         bool
	MeetsThreshold     bool
	InvalidationReasons []string
}

// TokenBalance is one venue's holding of one token.
type TokenBalance struct {
	Symbol      string       `json:"symbol"`
	Mint        string       `json:"mint"`
	RawBalance  string       `json:"rawBalance"`
	Balance     money.Amount `json:"balance"`
	Decimals    int32        `json:"decimals"`
	ValueUsd    *money.Amount `json:"valueUsd,omitempty"`
	LastUpdated time.Time    `json:"lastUpdated"`
}

// InventorySnapshot is the StateStore's exclusively-owned view of balances
// across both venues. Consumers only ever see copies.
type InventorySnapshot struct {
	Primary         map[string]TokenBalance `json:"primary"`
	Secondary       map[string]TokenBalance `json:"secondary"`
	NativePrimary   money.Amount            `json:"nativePrimary"`
	NativeSecondary money.Amount            `json:"nativeSecondary"`
	LastUpdated     time.Time               `json:"lastUpdated"`
	Version         int64                   `json:"version"`
}

// CooldownEntry marks a token as resting after a trade.
type CooldownEntry struct {
	Symbol       string    `json:"symbol"`
	EndsAtEpochMs int64    `json:"endsAtEpochMs"`
	Reason       string    `json:"reason"`
}

// InCooldown reports whether the entry is still active at the given time.
func (c CooldownEntry) InCooldown(now time.Time) bool {
	return now.UnixMilli() < c.EndsAtEpochMs
}

// TradeMode distinguishes a real submission from a simulated one.
type TradeMode string

const (
	ModeLive   TradeMode = "live"
	ModeDryRun TradeMode = "dryRun"
)

// ExpectedOutcome is what the evaluator predicted before execution.
type ExpectedOutcome struct {
	GcProceeds money.Amount `json:"gcProceeds"`
	SolCost    money.Amount `json:"solCost"`
	NetEdge    money.Amount `json:"netEdge"`
	NetEdgeBps int          `json:"netEdgeBps"`
	PrimaryImpactBps   int  `json:"primaryImpactBps"`
	SecondaryImpactBps int  `json:"secondaryImpactBps"`
}

// ActualOutcome is what execution actually produced, when available.
type ActualOutcome struct {
	GcProceeds money.Amount `json:"gcProceeds"`
	SolCost    money.Amount `json:"solCost"`
	NetEdge    money.Amount `json:"netEdge"`
}

// TradeLogEntry records one executed (or dry-run) paired trade.
type TradeLogEntry struct {
	TimestampIso        string          `json:"timestampIso"`
	Mode                TradeMode       `json:"mode"`
	Token               string          `json:"token"`
	TradeSize           money.Amount    `json:"tradeSize"`
	Direction           Direction       `json:"direction"`
	StrategyID          string          `json:"strategyId"`
	Success             bool            `json:"success"`
	Expected            ExpectedOutcome `json:"expected"`
	Actual              *ActualOutcome  `json:"actual,omitempty"`
	PrimaryTxID         string          `json:"primaryTxid,omitempty"`
	SecondaryTxID       string          `json:"secondaryTxid,omitempty"`
	PrimaryError        string          `json:"primaryError,omitempty"`
	SecondaryError      string          `json:"secondaryError,omitempty"`
	PartialSuccess      bool            `json:"partialSuccess"`
	ExecutionDurationMs int64           `json:"executionDurationMs"`
}

// BridgeStatus is the lifecycle state of a cross-venue transfer.
type BridgeStatus string

const (
	BridgePending   BridgeStatus = "pending"
	BridgeCompleted BridgeStatus = "completed"
	BridgeFailed    BridgeStatus = "failed"
)

// BridgeRecord tracks one cross-chain inventory rebalance.
type BridgeRecord struct {
	ID          string       `json:"id"`
	Token       string       `json:"token"`
	FromVenue   Venue        `json:"fromVenue"`
	ToVenue     Venue        `json:"toVenue"`
	Amount      money.Amount `json:"amount"`
	SubmittedAt time.Time    `json:"submittedAt"`
	Status      BridgeStatus `json:"status"`
	LastPollAt  time.Time    `json:"lastPollAt"`
	ChainRefs   []string     `json:"chainRefs,omitempty"`
	Attempts    int          `json:"attempts"`
}

// PriceCacheEntry is a cached USD price used by the rate converter's
// USD-cross resolution path.
type PriceCacheEntry struct {
	Symbol      string       `json:"symbol"`
	Usd         money.Amount `json:"usd"`
	LastUpdated time.Time    `json:"lastUpdated"`
	Source      string       `json:"source"`
}
