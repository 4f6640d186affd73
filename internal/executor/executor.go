// Package executor submits the two legs of an arbitrage trade concurrently
// and reports their joint outcome. It never unwinds a broadcast leg — a
// partial success is surfaced for operator attention, not auto-corrected.
// In dry-run mode Execute returns the computed Plan without touching either
// venue.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arb-core/internal/domain"
	"arb-core/internal/edge"
	"arb-core/internal/events"
	"arb-core/internal/money"
	"arb-core/internal/venue"
)

// Executor runs the dual-leg submission for a selected strategy.
type Executor struct {
	primary   venue.Executor
	secondary venue.Executor
	primaryQ  venue.Provider
	secondaryQ venue.Provider
	bus       *events.Bus
	log       zerolog.Logger
	slippage  SlippageParams
}

func New(primary, secondary venue.Executor, primaryQ, secondaryQ venue.Provider, bus *events.Bus, slippage SlippageParams, log zerolog.Logger) *Executor {
	return &Executor{
		primary: primary, secondary: secondary,
		primaryQ: primaryQ, secondaryQ: secondaryQ,
		bus: bus, slippage: slippage, log: log,
	}
}

// computePlan builds the expected amounts for dry-run mode without touching
// either venue.
func computePlan(direction domain.Direction, result domain.EdgeResult) Plan {
	expectedPrimary := result.Income
	expectedSecondary := result.Expense
	if direction == domain.DirectionReverse {
		expectedPrimary, expectedSecondary = result.Expense, result.Income
	}
	return Plan{
		Direction:         direction,
		ExpectedPrimary:   expectedPrimary,
		ExpectedSecondary: expectedSecondary,
		ExpectedNetEdge:   result.NetEdge,
		NetEdgeBps:        result.NetEdgeBps,
		PlannedAt:         time.Now(),
	}
}

// Execute runs one selected strategy. In dryRun mode it returns a Plan with
// no venue interaction; in live mode it re-quotes, computes dynamic
// slippage, and submits both legs concurrently per §4.9.
func (e *Executor) Execute(ctx context.Context, mode domain.TradeMode, token domain.TokenDescriptor, s domain.Strategy, direction domain.Direction, priorEdge domain.EdgeResult, quoteToRefRate money.Amount) (*Plan, *DualLegResult, error) {
	if mode == domain.ModeDryRun {
		p := computePlan(direction, priorEdge)
		return &p, nil, nil
	}

	start := time.Now()

	// Step 1: re-quote both venues, since the quotes used for risk may be
	// stale by execution time.
	primaryQuote, err := e.primaryQ.GetQuote(ctx, token.Symbol, token.TradeSize, s.PrimarySide.Op, s.PrimarySide.QuoteCurrency)
	if err != nil {
		return nil, nil, fmt.Errorf("re-quote primary: %w", err)
	}
	secondaryQuote, err := e.secondaryQ.GetQuote(ctx, token.Symbol, token.TradeSize, s.SecondarySide.Op, s.SecondarySide.QuoteCurrency)
	if err != nil {
		return nil, nil, fmt.Errorf("re-quote secondary: %w", err)
	}

	reQuoted := edge.Calculate(edge.Params{
		Direction:      direction,
		TradeSize:      token.TradeSize,
		PrimaryQuote:   primaryQuote,
		SecondaryQuote: secondaryQuote,
		QuoteToRefRate: quoteToRefRate,
		MinEdgeBps:     0,
	})

	// Step 2: dynamic slippage clamp per leg, driven by the re-quoted edge.
	slippageBps := e.slippage.clamp(reQuoted.NetEdgeBps)

	primaryReq := venue.SwapRequest{
		Symbol: token.Symbol, Side: s.PrimarySide.Op, TradeSize: token.TradeSize,
		QuoteCurrency: s.PrimarySide.QuoteCurrency, LimitPrice: primaryQuote.Price,
		SlippageBps: slippageBps, MinOutput: primaryQuote.MinOutput,
	}
	secondaryReq := venue.SwapRequest{
		Symbol: token.Symbol, Side: s.SecondarySide.Op, TradeSize: token.TradeSize,
		QuoteCurrency: s.SecondarySide.QuoteCurrency, LimitPrice: secondaryQuote.Price,
		SlippageBps: slippageBps, MinOutput: secondaryQuote.MinOutput,
	}

	// Step 3: submit both legs concurrently; once broadcast neither is
	// retried by this call.
	var primaryRes, secondaryRes LegResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		primaryRes = e.submitLeg(ctx, e.primary, primaryReq)
	}()
	go func() {
		defer wg.Done()
		secondaryRes = e.submitLeg(ctx, e.secondary, secondaryReq)
	}()
	wg.Wait()

	result := &DualLegResult{
		Primary:   primaryRes,
		Secondary: secondaryRes,
		Mode:      mode,
		DurationMs: time.Since(start).Milliseconds(),
	}
	result.PartialSuccess = primaryRes.Success != secondaryRes.Success

	if e.bus != nil {
		if result.PartialSuccess {
			e.bus.Publish(events.EventErrorExecution, result)
		} else if result.BothSucceeded() {
			e.bus.Publish(events.EventTradeSettled, result)
		}
	}

	return nil, result, nil
}

func (e *Executor) submitLeg(ctx context.Context, ex venue.Executor, req venue.SwapRequest) LegResult {
	res, err := ex.SubmitSwap(ctx, req)
	if err != nil {
		e.log.Warn().Err(err).Str("venue", string(ex.Venue())).Str("symbol", req.Symbol).Msg("leg submission failed")
		return LegResult{Venue: ex.Venue(), Success: false, Err: err}
	}
	return LegResult{
		Venue: ex.Venue(), Success: true, TxID: res.TxID,
		Input: res.ActualInput, Output: res.ActualOutput,
	}
}
