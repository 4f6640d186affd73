// Package risk is the pre-trade gate: price-impact, cooldown, edge
// threshold, inventory sufficiency, and daily trade-cap checks. Every check
// runs and every failing reason is collected; none short-circuits the rest.
package risk

import (
	"arb-core/internal/domain"
	"arb-core/internal/edge"
)

// Manager evaluates strategies against the pre-trade gate.
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Evaluate runs the five-step gate from §4.7 and returns a Decision.
func (m *Manager) Evaluate(in Input) Decision {
	var reasons []string

	// 1. Price-impact guard on each venue.
	if in.PrimaryQuote.PriceImpactBps > m.cfg.MaxPriceImpactBps {
		reasons = append(reasons, "Primary price impact exceeds maximum")
	}
	if in.SecondaryQuote.PriceImpactBps > m.cfg.MaxPriceImpactBps {
		reasons = append(reasons, "Secondary price impact exceeds maximum")
	}

	// 2. Cooldown lookup.
	if in.InCooldown {
		reasons = append(reasons, "Token is in cooldown")
	}

	// Bridge-cost amortisation needs an oracle price; absence fails closed
	// unless a fallback is configured.
	refUsd := in.RefUsdPrice
	if refUsd == nil && m.cfg.FallbackRefUsdPrice != nil {
		refUsd = m.cfg.FallbackRefUsdPrice
	}
	if refUsd == nil {
		reasons = append(reasons, "Oracle price unavailable for bridge cost")
	}

	minEdge := m.cfg.MinEdgeBps
	if in.Direction == domain.DirectionReverse {
		minEdge = m.cfg.ReverseMinEdgeBps
	}
	if in.MinEdgeBpsOverride != nil {
		minEdge = *in.MinEdgeBpsOverride
	}

	result := edge.Calculate(edge.Params{
		Direction:         in.Direction,
		TradeSize:         in.Token.TradeSize,
		PrimaryQuote:      in.PrimaryQuote,
		SecondaryQuote:    in.SecondaryQuote,
		QuoteToRefRate:    in.QuoteToRefRate,
		RiskBufferBps:     m.cfg.RiskBufferBps,
		MinEdgeBps:        minEdge,
		MaxPriceImpactBps: m.cfg.MaxPriceImpactBps,
		BridgeCostUsd:     m.cfg.BridgeCostUsd,
		RefUsdPrice:       refUsd,
		TradesPerBridge:   m.cfg.TradesPerBridge,
	})

	// 3. Edge calculation and threshold check.
	if !result.MeetsThreshold {
		reasons = append(reasons, "Edge below threshold")
	}

	// 4. Inventory sufficiency (direction-aware).
	if in.Direction == domain.DirectionForward {
		if in.PrimaryBalance.LessThan(in.Token.TradeSize) {
			reasons = append(reasons, "Insufficient primary inventory")
		}
		secondaryCost := result.Expense
		if in.SecondaryBalance.LessThan(secondaryCost) {
			reasons = append(reasons, "Insufficient secondary quote-currency inventory")
		}
	} else {
		if in.RefBalance.LessThan(result.Expense) {
			reasons = append(reasons, "Insufficient Ref inventory on primary")
		}
		if in.SecondaryBalance.LessThan(in.Token.TradeSize) {
			reasons = append(reasons, "Insufficient secondary token inventory")
		}
	}

	// 5. Global/per-token daily trade cap.
	if m.cfg.MaxDailyTrades > 0 && in.DailyTradeCount >= m.cfg.MaxDailyTrades {
		reasons = append(reasons, "Daily trade cap reached")
	}

	return Decision{
		ShouldProceed: len(reasons) == 0,
		Reasons:       reasons,
		Edge:          result,
	}
}
