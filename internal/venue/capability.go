// Package venue defines the two capability abstractions the strategy
// evaluator and executor depend on — QuoteProvider and SwapExecutor — plus
// the shared rate-limiting and clock-sync helpers both venue adapters use.
// Each venue implements both capabilities; there is no inheritance chain,
// each venue composes both independently.
package venue

import (
	"context"
	"errors"
	"time"

	"arb-core/internal/domain"
	"arb-core/internal/money"
)

// QuoteErrorKind classifies why GetQuote failed.
type QuoteErrorKind string

const (
	QuoteErrNetwork   QuoteErrorKind = "network"
	QuoteErrNoRoute   QuoteErrorKind = "no-route"
	QuoteErrMalformed QuoteErrorKind = "malformed"
)

// QuoteError is returned by GetQuote on failure.
type QuoteError struct {
	Kind QuoteErrorKind
	Err  error
}

func (e *QuoteError) Error() string { return string(e.Kind) + ": " + e.Err.Error() }
func (e *QuoteError) Unwrap() error { return e.Err }

// NewQuoteError wraps err with a kind.
func NewQuoteError(kind QuoteErrorKind, err error) *QuoteError {
	return &QuoteError{Kind: kind, Err: err}
}

var ErrNoRoute = errors.New("no route found")

// Provider is implemented once per venue: it fetches an executable quote for
// a token given trade size, op, and quote currency.
type Provider interface {
	Venue() domain.Venue
	GetQuote(ctx context.Context, symbol string, tradeSize money.Amount, op domain.Side, quoteCurrency string) (domain.Quote, error)
}

// SwapRequest is one leg's submission intent, carrying the re-quoted price
// and the dynamic slippage the executor computed for it.
type SwapRequest struct {
	Symbol        string
	Side          domain.Side
	TradeSize     money.Amount
	QuoteCurrency string
	LimitPrice    money.Amount
	SlippageBps   int
	MinOutput     money.Amount
}

// SwapResult is a venue's terminal outcome for a submitted swap.
type SwapResult struct {
	TxID          string
	ActualInput   money.Amount
	ActualOutput  money.Amount
	SettledAt     time.Time
}

// Executor is implemented once per venue: it submits a swap and blocks until
// the venue reports a terminal outcome. Once broadcast, a leg is never
// retried by the caller.
type Executor interface {
	Venue() domain.Venue
	SubmitSwap(ctx context.Context, req SwapRequest) (SwapResult, error)
}

// BalanceReader is implemented once per venue for the inventory refresher:
// it fetches current balances for the given symbols plus the venue's native
// gas token.
type BalanceReader interface {
	Venue() domain.Venue
	GetBalances(ctx context.Context, symbols []string) (map[string]domain.TokenBalance, money.Amount, error)
}
