// Package galachain implements the primary on-chain DEX venue: quotes are
// computed from local constant-product pool state rather than a remote
// order book, and swaps are submitted as signed GalaChain transactions.
package galachain

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"arb-core/internal/credential"
	"arb-core/internal/domain"
	"arb-core/internal/money"
	"arb-core/internal/venue"
	"arb-core/internal/venue/httpx"
)

// Pool is one constant-product pool's reserves and fee tier, the local
// state the primary venue routes through instead of querying per request.
type Pool struct {
	TokenSymbol     string
	QuoteCurrency   string
	TokenReserve    money.Amount
	QuoteReserve    money.Amount
	FeeBps          int
	PerHopFixedFee  money.Amount // charged in Ref
}

// PoolState is a snapshot of every pool the provider can route through,
// keyed by (tokenSymbol, quoteCurrency).
type PoolState struct {
	pools map[string]Pool
}

// NewPoolState builds a pool-state index from a slice of pools.
func NewPoolState(pools []Pool) *PoolState {
	ps := &PoolState{pools: make(map[string]Pool, len(pools))}
	for _, p := range pools {
		ps.pools[key(p.TokenSymbol, p.QuoteCurrency)] = p
	}
	return ps
}

func key(symbol, quoteCurrency string) string { return symbol + "/" + quoteCurrency }

// Update replaces a pool's reserves, called by whatever keeps local state in
// sync with the chain (out of scope for this package).
func (ps *PoolState) Update(p Pool) { ps.pools[key(p.TokenSymbol, p.QuoteCurrency)] = p }

// Provider is the primary venue's QuoteProvider + SwapExecutor.
type Provider struct {
	pools    *PoolState
	client   *httpx.Client
	rl       *venue.RateLimiter
	cred     *credential.Handle
	log      zerolog.Logger
	ttl      time.Duration
}

// New constructs the primary venue adapter.
func New(pools *PoolState, endpoint string, cred *credential.Handle, log zerolog.Logger) *Provider {
	return &Provider{
		pools:  pools,
		client: httpx.New(endpoint),
		rl:     venue.NewRateLimiter(600, time.Minute, log),
		cred:   cred,
		log:    log,
		ttl:    30 * time.Second,
	}
}

func (p *Provider) Venue() domain.Venue { return domain.VenuePrimary }

// GetQuote computes an executable price via the constant-product formula
// against the locally held pool reserves for (symbol, quoteCurrency).
func (p *Provider) GetQuote(ctx context.Context, symbol string, tradeSize money.Amount, op domain.Side, quoteCurrency string) (domain.Quote, error) {
	pool, ok := p.pools.pools[key(symbol, quoteCurrency)]
	if !ok {
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrNoRoute, fmt.Errorf("no pool for %s/%s", symbol, quoteCurrency))
	}
	if pool.TokenReserve.IsZero() || pool.QuoteReserve.IsZero() {
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrNoRoute, venue.ErrNoRoute)
	}

	var out, priceImpactBps money.Amount
	var impactBps int
	var execPrice money.Amount

	feeFactor := money.New(10000 - int64(pool.FeeBps)).Div(money.New(10000), 12)

	switch op {
	case domain.SideSell:
		// selling `symbol` into the pool: token reserve grows, quote shrinks.
		amountInAfterFee := tradeSize.Mul(feeFactor)
		numerator := amountInAfterFee.Mul(pool.QuoteReserve)
		denominator := pool.TokenReserve.Add(amountInAfterFee)
		out = numerator.Div(denominator, 18)
		spotPrice := pool.QuoteReserve.Div(pool.TokenReserve, 18)
		execPrice = out.Div(tradeSize, 18)
		impactBps = money.BpsRatio(spotPrice.Sub(execPrice).Abs(), spotPrice)
	case domain.SideBuy:
		// buying `symbol` from the pool by spending quoteCurrency.
		amountInAfterFee := tradeSize.Mul(pool.QuoteReserve.Div(pool.TokenReserve, 18)).Mul(feeFactor)
		numerator := amountInAfterFee.Mul(pool.TokenReserve)
		denominator := pool.QuoteReserve.Add(amountInAfterFee)
		out = numerator.Div(denominator, 18)
		spotPrice := pool.QuoteReserve.Div(pool.TokenReserve, 18)
		execPrice = amountInAfterFee.Div(tradeSize, 18)
		impactBps = money.BpsRatio(execPrice.Sub(spotPrice).Abs(), spotPrice)
	default:
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrMalformed, fmt.Errorf("unknown op %q", op))
	}
	_ = priceImpactBps

	now := time.Now()
	liquidity := pool.TokenReserve
	return domain.Quote{
		Venue:          domain.VenuePrimary,
		Symbol:         symbol,
		Side:           op,
		TradeSize:      tradeSize,
		QuoteCurrency:  quoteCurrency,
		Price:          execPrice,
		PriceImpactBps: impactBps,
		MinOutput:      out,
		Fees:           pool.PerHopFixedFee,
		Timestamp:      now,
		ExpiresAt:      now.Add(p.ttl),
		Liquidity:      &liquidity,
	}, nil
}

// SubmitSwap signs and submits a swap transaction to the primary chain.
func (p *Provider) SubmitSwap(ctx context.Context, req venue.SwapRequest) (venue.SwapResult, error) {
	key, err := p.cred.Acquire("primary")
	if err != nil {
		return venue.SwapResult{}, fmt.Errorf("galachain: %w", err)
	}
	defer key.Release()

	var resp struct {
		TxID   string `json:"txId"`
		Output string `json:"output"`
	}
	payload := map[string]interface{}{
		"symbol":        req.Symbol,
		"side":          req.Side,
		"tradeSize":     req.TradeSize.String(),
		"quoteCurrency": req.QuoteCurrency,
		"limitPrice":    req.LimitPrice.String(),
		"slippageBps":   req.SlippageBps,
		"minOutput":     req.MinOutput.String(),
	}
	if _, err := p.client.PostJSON(ctx, "/v1/swap", nil, payload, &resp); err != nil {
		return venue.SwapResult{}, fmt.Errorf("galachain: submit swap: %w", err)
	}
	out, err := money.NewFromString(resp.Output)
	if err != nil {
		return venue.SwapResult{}, fmt.Errorf("galachain: parse output: %w", err)
	}
	return venue.SwapResult{
		TxID:         resp.TxID,
		ActualInput:  req.TradeSize,
		ActualOutput: out,
		SettledAt:    time.Now(),
	}, nil
}

type balanceResponse struct {
	Balances map[string]string `json:"balances"`
	Native   string            `json:"nativeBalance"`
}

// GetBalances queries the chain's balance endpoint for the given symbols
// plus the native GALA gas balance. Chain-specific account derivation is
// out of scope; this assumes the endpoint already scopes the query to the
// configured signer's address.
func (p *Provider) GetBalances(ctx context.Context, symbols []string) (map[string]domain.TokenBalance, money.Amount, error) {
	var resp balanceResponse
	if _, err := p.client.GetJSON(ctx, "/v1/balances", nil, &resp); err != nil {
		return nil, money.Zero, fmt.Errorf("galachain: get balances: %w", err)
	}

	now := time.Now()
	out := make(map[string]domain.TokenBalance, len(symbols))
	for _, sym := range symbols {
		raw, ok := resp.Balances[sym]
		if !ok {
			out[sym] = domain.TokenBalance{Symbol: sym, LastUpdated: now}
			continue
		}
		amt, err := money.NewFromString(raw)
		if err != nil {
			return nil, money.Zero, fmt.Errorf("galachain: parse balance for %s: %w", sym, err)
		}
		out[sym] = domain.TokenBalance{Symbol: sym, Balance: amt, LastUpdated: now}
	}

	native := money.Zero
	if resp.Native != "" {
		amt, err := money.NewFromString(resp.Native)
		if err != nil {
			return nil, money.Zero, fmt.Errorf("galachain: parse native balance: %w", err)
		}
		native = amt
	}
	return out, native, nil
}

var _ venue.Provider = (*Provider)(nil)
var _ venue.Executor = (*Provider)(nil)
var _ venue.BalanceReader = (*Provider)(nil)
