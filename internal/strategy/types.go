// Package strategy is the registry and evaluator: it enumerates the
// (primary-side, secondary-side) combinations configured per token,
// evaluates each through the quote→validate→convert→edge→risk pipeline,
// and selects the best. Each strategy is a declarative
// (direction, quoteCurrency, op) descriptor rather than a typed indicator
// implementation, evaluated fresh every tick.
package strategy

import (
	"arb-core/internal/domain"
	"arb-core/internal/money"
	"arb-core/internal/risk"
)

// Result is one strategy's full evaluation outcome for a token.
type Result struct {
	Strategy       domain.Strategy
	Direction      domain.Direction
	Edge           domain.EdgeResult
	Risk           risk.Decision
	QuoteToRefRate money.Amount
	Err            error
}

// Proceed reports whether this result is eligible for execution: it
// evaluated successfully, the risk gate cleared it, and the edge is
// profitable and meets threshold.
func (r Result) Proceed() bool {
	return r.Err == nil && r.Risk.ShouldProceed && r.Edge.Profitable && r.Edge.MeetsThreshold
}
