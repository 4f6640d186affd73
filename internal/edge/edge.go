// Package edge computes the direction-agnostic profitability of a paired
// arbitrage trade: income, expense, bridge amortisation, risk buffer, and
// the resulting net edge in basis points.
package edge

import (
	"arb-core/internal/domain"
	"arb-core/internal/money"
)

// Params configures one evaluation.
type Params struct {
	Direction          domain.Direction
	TradeSize          money.Amount
	PrimaryQuote       domain.Quote
	SecondaryQuote     domain.Quote
	QuoteToRefRate     money.Amount // Ref per unit of secondary's quote currency
	RiskBufferBps      int
	MinEdgeBps         int // forward threshold, or reverse threshold per caller
	MaxPriceImpactBps  int
	BridgeCostUsd      float64
	RefUsdPrice        *money.Amount // optional; bridge amortisation needs it
	TradesPerBridge    int
}

// Calculate computes an EdgeResult for one direction. forward sells on
// primary and buys on secondary; reverse is the mirror.
func Calculate(p Params) domain.EdgeResult {
	var income, expense money.Amount
	var sellSide, buySide domain.Venue

	switch p.Direction {
	case domain.DirectionForward:
		sellSide, buySide = domain.VenuePrimary, domain.VenueSecondary
		income = p.PrimaryQuote.Price.Mul(p.TradeSize)
		expense = p.SecondaryQuote.Price.Mul(p.TradeSize).Mul(p.QuoteToRefRate)
	case domain.DirectionReverse:
		sellSide, buySide = domain.VenueSecondary, domain.VenuePrimary
		income = p.SecondaryQuote.Price.Mul(p.TradeSize).Mul(p.QuoteToRefRate)
		expense = p.PrimaryQuote.Price.Mul(p.TradeSize)
	}

	bridgeCost := amortisedBridgeCost(p)
	riskBuffer := income.BpsOf(p.RiskBufferBps)

	netEdge := income.Sub(expense).Sub(bridgeCost).Sub(riskBuffer)

	var netEdgeBps int
	if !expense.IsZero() {
		netEdgeBps = money.BpsRatio(netEdge, expense)
	}

	var reasons []string
	if income.IsZero() {
		reasons = append(reasons, "Zero income leg")
	}
	if expense.IsZero() {
		reasons = append(reasons, "Zero expense leg")
	}

	meetsThreshold := netEdgeBps >= p.MinEdgeBps
	if !meetsThreshold {
		reasons = append(reasons, "Edge below threshold")
	}

	impactsOK := p.PrimaryQuote.PriceImpactBps <= p.MaxPriceImpactBps && p.SecondaryQuote.PriceImpactBps <= p.MaxPriceImpactBps
	if !impactsOK {
		reasons = append(reasons, "Price impact exceeds maximum")
	}

	profitable := netEdge.IsPositive() && meetsThreshold && impactsOK
	if !profitable && len(reasons) == 0 {
		reasons = append(reasons, "Net edge not positive")
	}

	return domain.EdgeResult{
		Direction:           p.Direction,
		Income:              income,
		Expense:             expense,
		BridgeCost:          bridgeCost,
		RiskBuffer:          riskBuffer,
		NetEdge:             netEdge,
		NetEdgeBps:          netEdgeBps,
		PrimaryImpactBps:    p.PrimaryQuote.PriceImpactBps,
		SecondaryImpactBps:  p.SecondaryQuote.PriceImpactBps,
		SellSide:            sellSide,
		BuySide:             buySide,
		Profitable:          profitable,
		MeetsThreshold:      meetsThreshold,
		InvalidationReasons: reasons,
	}
}

// amortisedBridgeCost applies bridgeCostUsd / refUsdPrice / tradesPerBridge.
// A missing oracle price yields
// zero bridge cost here — callers that need the "fail rather than silently
// default" behaviour must check RefUsdPrice == nil before calling Calculate
// and refuse the evaluation themselves (see risk.Manager).
func amortisedBridgeCost(p Params) money.Amount {
	if p.RefUsdPrice == nil || p.RefUsdPrice.IsZero() || p.BridgeCostUsd == 0 {
		return money.Zero
	}
	tradesPerBridge := p.TradesPerBridge
	if tradesPerBridge <= 0 {
		tradesPerBridge = 100
	}
	usd := money.NewFromFloat(p.BridgeCostUsd)
	return usd.Div(*p.RefUsdPrice, 18).Div(money.New(int64(tradesPerBridge)), 18)
}
