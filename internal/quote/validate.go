// Package quote validates a venue-returned Quote for freshness,
// completeness, and liquidity sufficiency before it can feed the edge
// calculator.
package quote

import (
	"time"

	"arb-core/internal/domain"
	"arb-core/internal/money"
)

// Params configures the validator's thresholds.
type Params struct {
	MaxAge                time.Duration
	MinPrice              money.Amount
	MaxAcceptableImpactBps int
	MinAbsoluteLiquidity  money.Amount
}

// DefaultParams are the engine's default validation thresholds.
func DefaultParams() Params {
	return Params{
		MaxAge:                 30 * time.Second,
		MinPrice:               mustAmount("0.00000001"),
		MaxAcceptableImpactBps: 500,
		MinAbsoluteLiquidity:   money.New(100),
	}
}

func mustAmount(s string) money.Amount {
	a, err := money.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Result is the validator's verdict.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
	AgeSec   float64
	Expired  bool
}

// Validate checks a quote. A nil quote pointer is rejected outright with the
// single error "null".
func Validate(q *domain.Quote, tradeSize money.Amount, now time.Time, p Params) Result {
	if q == nil {
		return Result{Valid: false, Errors: []string{"null"}}
	}

	var errs, warns []string

	age := now.Sub(q.Timestamp)
	expired := q.Expired(now)
	if expired {
		errs = append(errs, "Quote expired")
	}
	if age > p.MaxAge {
		errs = append(errs, "Quote is stale")
	}

	if q.Symbol == "" || q.QuoteCurrency == "" {
		errs = append(errs, "Missing required fields")
	}
	if !q.Price.GreaterThan(p.MinPrice) {
		errs = append(errs, "Price below minimum")
	}
	if q.PriceImpactBps < 0 || q.PriceImpactBps > p.MaxAcceptableImpactBps {
		errs = append(errs, "Price impact exceeds maximum")
	}

	minRequired := p.MinAbsoluteLiquidity
	twiceSize := tradeSize.MulInt64(2)
	if twiceSize.GreaterThan(minRequired) {
		minRequired = twiceSize
	}
	if q.Liquidity == nil || q.Liquidity.LessThan(minRequired) {
		errs = append(errs, "Insufficient pool liquidity")
	} else {
		threeSize := tradeSize.MulInt64(3)
		if q.Liquidity.LessThan(threeSize) {
			warns = append(warns, "Liquidity is only 2-3x trade size")
		}
	}

	return Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
		AgeSec:   age.Seconds(),
		Expired:  expired,
	}
}
