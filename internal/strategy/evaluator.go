package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	xrate "golang.org/x/time/rate"

	"arb-core/internal/domain"
	"arb-core/internal/money"
	"arb-core/internal/quote"
	"arb-core/internal/rate"
	"arb-core/internal/risk"
	"arb-core/internal/venue"
)

// cacheKey identifies one (venue,symbol,size,quoteCurrency,op) quote fetch
// so repeated strategies on the same token don't refetch redundantly within
// a tick.
type cacheKey struct {
	venue         domain.Venue
	symbol        string
	tradeSize     string
	quoteCurrency string
	op            domain.Side
}

type cachedQuote struct {
	quote domain.Quote
	at    time.Time
}

// Inventory is the subset of state the evaluator needs per token; kept as
// an interface so tests can supply a fake instead of a live Store.
type Inventory interface {
	IsTokenInCooldown(symbol string) bool
}

// Evaluator runs the per-tick strategy evaluation pipeline for one token:
// quote fetch (with a per-tick cache) → validate → convert → edge → risk.
type Evaluator struct {
	registry  *Registry
	primary   venue.Provider
	secondary venue.Provider
	validator quote.Params
	converter *rate.Converter
	risk      *risk.Manager
	store     Inventory

	pacing *xrate.Limiter
	log    zerolog.Logger

	cacheMu sync.Mutex
	cache   map[cacheKey]cachedQuote
	cacheTTL time.Duration
}

// NewEvaluator constructs an Evaluator. pacingInterval is the minimum gap
// enforced between strategy evaluations (default 500ms per §4.8).
func NewEvaluator(registry *Registry, primary, secondary venue.Provider, converter *rate.Converter, riskMgr *risk.Manager, store Inventory, pacingInterval time.Duration, log zerolog.Logger) *Evaluator {
	if pacingInterval <= 0 {
		pacingInterval = 500 * time.Millisecond
	}
	return &Evaluator{
		registry:  registry,
		primary:   primary,
		secondary: secondary,
		validator: quote.DefaultParams(),
		converter: converter,
		risk:      riskMgr,
		store:     store,
		pacing:    xrate.NewLimiter(xrate.Every(pacingInterval), 1),
		log:       log,
		cache:     make(map[cacheKey]cachedQuote),
		cacheTTL:  10 * time.Second,
	}
}

// getQuote fetches a quote through the per-tick cache, owned exclusively by
// this Evaluator instance and never shared across ticks.
func (e *Evaluator) getQuote(ctx context.Context, provider venue.Provider, symbol string, tradeSize money.Amount, op domain.Side, quoteCurrency string) (domain.Quote, error) {
	key := cacheKey{venue: provider.Venue(), symbol: symbol, tradeSize: tradeSize.String(), quoteCurrency: quoteCurrency, op: op}

	e.cacheMu.Lock()
	if c, ok := e.cache[key]; ok && time.Since(c.at) < e.cacheTTL {
		e.cacheMu.Unlock()
		return c.quote, nil
	}
	e.cacheMu.Unlock()

	q, err := provider.GetQuote(ctx, symbol, tradeSize, op, quoteCurrency)
	if err != nil {
		return domain.Quote{}, err
	}

	e.cacheMu.Lock()
	e.cache[key] = cachedQuote{quote: q, at: time.Now()}
	e.cacheMu.Unlock()
	return q, nil
}

// TokenEvalInput carries the per-token state the risk gate needs, resolved
// by the caller from the state store and trade log before invoking
// EvaluateToken.
type TokenEvalInput struct {
	DailyTradeCount  int
	PrimaryBalance   money.Amount
	SecondaryBalance money.Amount
	RefBalance       money.Amount
	RefUsdPrice      *money.Amount
}

// EvaluateToken runs every enabled strategy for token and returns all
// results plus the selected best one, if any.
func (e *Evaluator) EvaluateToken(ctx context.Context, token domain.TokenDescriptor, in TokenEvalInput) ([]Result, *Result) {
	strategies := e.registry.EnabledStrategies(token)
	results := make([]Result, 0, len(strategies))

	// Each token evaluation starts with an empty quote cache, so quotes are
	// shared between its strategies but never carried into a later tick.
	e.cacheMu.Lock()
	e.cache = make(map[cacheKey]cachedQuote)
	e.cacheMu.Unlock()

	inCooldown := e.store.IsTokenInCooldown(token.Symbol)

	for i, s := range strategies {
		if i > 0 {
			_ = e.pacing.Wait(ctx)
		}
		results = append(results, e.evaluateStrategy(ctx, token, s, in, inCooldown))
	}

	return results, selectBest(results)
}

func (e *Evaluator) evaluateStrategy(ctx context.Context, token domain.TokenDescriptor, s domain.Strategy, in TokenEvalInput, inCooldown bool) Result {
	direction := s.Direction()

	var primaryQuoteFetch, secondaryQuoteFetch func() (domain.Quote, error)
	primaryQuoteFetch = func() (domain.Quote, error) {
		return e.getQuote(ctx, e.primary, token.Symbol, token.TradeSize, s.PrimarySide.Op, s.PrimarySide.QuoteCurrency)
	}
	secondaryQuoteFetch = func() (domain.Quote, error) {
		return e.getQuote(ctx, e.secondary, token.Symbol, token.TradeSize, s.SecondarySide.Op, s.SecondarySide.QuoteCurrency)
	}

	// Primary and secondary quote fetches run in parallel, per §5.
	var primaryQuote, secondaryQuote domain.Quote
	var primaryErr, secondaryErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); primaryQuote, primaryErr = primaryQuoteFetch() }()
	go func() { defer wg.Done(); secondaryQuote, secondaryErr = secondaryQuoteFetch() }()
	wg.Wait()

	if primaryErr != nil {
		return Result{Strategy: s, Direction: direction, Err: fmt.Errorf("primary quote: %w", primaryErr)}
	}
	if secondaryErr != nil {
		return Result{Strategy: s, Direction: direction, Err: fmt.Errorf("secondary quote: %w", secondaryErr)}
	}

	now := time.Now()
	if v := quote.Validate(&primaryQuote, token.TradeSize, now, e.validator); !v.Valid {
		return Result{Strategy: s, Direction: direction, Err: fmt.Errorf("primary quote invalid: %v", v.Errors)}
	}
	if v := quote.Validate(&secondaryQuote, token.TradeSize, now, e.validator); !v.Valid {
		return Result{Strategy: s, Direction: direction, Err: fmt.Errorf("secondary quote invalid: %v", v.Errors)}
	}

	conv, err := e.converter.Convert(ctx, s.SecondarySide.QuoteCurrency, token.TradeSize, secondaryQuote)
	if err != nil {
		return Result{Strategy: s, Direction: direction, Err: fmt.Errorf("rate conversion: %w", err)}
	}

	decision := e.risk.Evaluate(risk.Input{
		Token:              token,
		Strategy:           s,
		Direction:          direction,
		PrimaryQuote:       primaryQuote,
		SecondaryQuote:     secondaryQuote,
		QuoteToRefRate:     conv.Rate,
		RefUsdPrice:        in.RefUsdPrice,
		InCooldown:         inCooldown,
		MinEdgeBpsOverride: s.MinEdgeBps,
		DailyTradeCount:    in.DailyTradeCount,
		PrimaryBalance:     in.PrimaryBalance,
		SecondaryBalance:   in.SecondaryBalance,
		RefBalance:         in.RefBalance,
	})

	return Result{
		Strategy:       s,
		Direction:      direction,
		Edge:           decision.Edge,
		Risk:           decision,
		QuoteToRefRate: conv.Rate,
	}
}

// selectBest filters to proceedable results and returns the one with the
// highest netEdgeBps, ties broken by ascending priority, per §4.8 step 5.
func selectBest(results []Result) *Result {
	var best *Result
	for i := range results {
		r := &results[i]
		if !r.Proceed() {
			continue
		}
		if best == nil {
			best = r
			continue
		}
		if r.Edge.NetEdgeBps > best.Edge.NetEdgeBps {
			best = r
		} else if r.Edge.NetEdgeBps == best.Edge.NetEdgeBps && r.Strategy.Priority < best.Strategy.Priority {
			best = r
		}
	}
	return best
}
