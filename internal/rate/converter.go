// Package rate converts a non-reference quote currency into the reference
// unit (Ref) so the edge calculator can work entirely in Ref terms.
package rate

import (
	"context"
	"errors"
	"time"

	"arb-core/internal/domain"
	"arb-core/internal/money"
)

var ErrRateUnavailable = errors.New("rate: unavailable")

// Oracle resolves a symbol's USD price, backed by a TTL cache in front of a
// price-feed fetch.
type Oracle interface {
	UsdPrice(ctx context.Context, symbol string) (money.Amount, bool, error)
}

// DirectQuoter optionally supplies a direct venue quote for quoteCurrency→Ref
// at the same trade size, the preferred resolution path since it avoids a
// USD round-trip.
type DirectQuoter interface {
	DirectToRef(ctx context.Context, quoteCurrency string, tradeSize money.Amount) (money.Amount, bool)
}

// Result is the converter's output.
type Result struct {
	Rate        money.Amount // Ref per unit of quoteCurrency
	RefUsdPrice *money.Amount
	QUsdPrice   *money.Amount
}

// Converter resolves Ref conversion rates in the order: direct venue quote,
// USD cross, provider hint.
type Converter struct {
	refSymbol string
	oracle    Oracle
	direct    DirectQuoter
}

func New(refSymbol string, oracle Oracle, direct DirectQuoter) *Converter {
	return &Converter{refSymbol: refSymbol, oracle: oracle, direct: direct}
}

// Convert resolves the Ref-per-quoteCurrency rate for the given quote. If
// quoteCurrency already IS the reference unit, the rate is 1.
func (c *Converter) Convert(ctx context.Context, quoteCurrency string, tradeSize money.Amount, q domain.Quote) (Result, error) {
	if quoteCurrency == c.refSymbol {
		return Result{Rate: money.New(1)}, nil
	}

	if c.direct != nil {
		if rate, ok := c.direct.DirectToRef(ctx, quoteCurrency, tradeSize); ok && rate.IsPositive() {
			return Result{Rate: rate}, nil
		}
	}

	if c.oracle != nil {
		refUsd, okRef, errRef := c.oracle.UsdPrice(ctx, c.refSymbol)
		qUsd, okQ, errQ := c.oracle.UsdPrice(ctx, quoteCurrency)
		if errRef == nil && errQ == nil && okRef && okQ && refUsd.IsPositive() {
			rate := qUsd.Div(refUsd, 18)
			return Result{Rate: rate, RefUsdPrice: &refUsd, QUsdPrice: &qUsd}, nil
		}
	}

	if q.QuoteToRef.Set && q.QuoteToRef.Rate.IsPositive() {
		return Result{Rate: q.QuoteToRef.Rate}, nil
	}

	return Result{}, ErrRateUnavailable
}

// CachedOracle wraps a price fetcher with a TTL cache, grounded in the
// state store's PriceCacheEntry and §4.5's "with cache TTL" requirement.
type CachedOracle struct {
	fetch func(ctx context.Context, symbol string) (money.Amount, error)
	ttl   time.Duration
	cache map[string]cachedPrice
}

type cachedPrice struct {
	amount money.Amount
	at     time.Time
}

func NewCachedOracle(ttl time.Duration, fetch func(ctx context.Context, symbol string) (money.Amount, error)) *CachedOracle {
	return &CachedOracle{fetch: fetch, ttl: ttl, cache: make(map[string]cachedPrice)}
}

func (o *CachedOracle) UsdPrice(ctx context.Context, symbol string) (money.Amount, bool, error) {
	if c, ok := o.cache[symbol]; ok && time.Since(c.at) < o.ttl {
		return c.amount, true, nil
	}
	amt, err := o.fetch(ctx, symbol)
	if err != nil {
		if c, ok := o.cache[symbol]; ok {
			// stale-but-present beats nothing; callers treat oracle failure
			// as "use cached value if fresh enough" upstream of this path.
			return c.amount, true, nil
		}
		return money.Zero, false, err
	}
	o.cache[symbol] = cachedPrice{amount: amt, at: time.Now()}
	return amt, true, nil
}
