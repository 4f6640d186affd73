// Package jupiter implements the secondary venue: an aggregator that routes
// swaps across many Solana AMMs. Quotes are fetched over HTTP; buys are
// exact-out requests (receive a fixed token amount), sells are exact-in
// (spend a fixed token amount), per the aggregator's own request shape.
package jupiter

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

// Mints maps a token symbol to its Solana mint address for route lookups.
type Mints map[string]string

type Provider struct {
	mints  Mints
	client *httpx.Client
	rl     *venue.RateLimiter
	cred   *credential.Handle
	log    zerolog.Logger
	ttl    time.Duration
}

func New(mints Mints, endpoint string, cred *credential.Handle, log zerolog.Logger) *Provider {
	return &Provider{
		mints:  mints,
		client: httpx.New(endpoint),
		rl:     venue.NewRateLimiter(60, time.Minute, log),
		cred:   cred,
		log:    log,
		ttl:    30 * time.Second,
	}
}

func (p *Provider) Venue() domain.Venue { return domain.VenueSecondary }

type quoteResponse struct {
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
}

// GetQuote issues an exact-out request when buying the token (we want a
// fixed amount of token out) or exact-in when selling it (we spend a fixed
// amount of token), matching the aggregator's own request shape.
func (p *Provider) GetQuote(ctx context.Context, symbol string, tradeSize money.Amount, op domain.Side, quoteCurrency string) (domain.Quote, error) {
	tokenMint, ok := p.mints[symbol]
	if !ok {
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrNoRoute, fmt.Errorf("no mint for %s", symbol))
	}
	quoteMint, ok := p.mints[quoteCurrency]
	if !ok {
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrNoRoute, fmt.Errorf("no mint for %s", quoteCurrency))
	}

	var inputMint, outputMint string
	var swapMode string
	switch op {
	case domain.SideBuy:
		// exact-out: receive tradeSize units of token, spend up to quoteCurrency.
		inputMint, outputMint, swapMode = quoteMint, tokenMint, "ExactOut"
	case domain.SideSell:
		// exact-in: spend tradeSize units of token, receive quoteCurrency.
		inputMint, outputMint, swapMode = tokenMint, quoteMint, "ExactIn"
	default:
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrMalformed, fmt.Errorf("unknown op %q", op))
	}

	path := fmt.Sprintf("/v6/quote?inputMint=%s&outputMint=%s&amount=%s&swapMode=%s",
		inputMint, outputMint, tradeSize.RoundDown(0).String(), swapMode)

	var resp quoteResponse
	if _, err := p.client.GetJSON(ctx, path, nil, &resp); err != nil {
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrNetwork, err)
	}
	if resp.InAmount == "" || resp.OutAmount == "" {
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrNoRoute, venue.ErrNoRoute)
	}

	in, err := money.NewFromString(resp.InAmount)
	if err != nil {
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrMalformed, err)
	}
	out, err := money.NewFromString(resp.OutAmount)
	if err != nil {
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrMalformed, err)
	}
	if in.IsZero() || out.IsZero() {
		return domain.Quote{}, venue.NewQuoteError(venue.QuoteErrNoRoute, venue.ErrNoRoute)
	}

	var price money.Amount
	if op == domain.SideBuy {
		price = in.Div(tradeSize, 18) // quoteCurrency spent per token received
	} else {
		price = out.Div(tradeSize, 18) // quoteCurrency received per token spent
	}

	impactBps := 0
	if pct, perr := money.NewFromString(resp.PriceImpactPct); perr == nil {
		impactBps = int(pct.MulInt64(10000).RoundHalfEven(0).Float64())
		if impactBps < 0 {
			impactBps = -impactBps
		}
	}

	minOutput := out
	if resp.OtherAmountThreshold != "" {
		if t, terr := money.NewFromString(resp.OtherAmountThreshold); terr == nil {
			minOutput = t
		}
	}

	now := time.Now()
	return domain.Quote{
		Venue:          domain.VenueSecondary,
		Symbol:         symbol,
		Side:           op,
		TradeSize:      tradeSize,
		QuoteCurrency:  quoteCurrency,
		Price:          price,
		PriceImpactBps: impactBps,
		MinOutput:      minOutput,
		Fees:           money.Zero,
		Timestamp:      now,
		ExpiresAt:      now.Add(p.ttl),
	}, nil
}

type swapResponse struct {
	TxID          string `json:"txid"`
	InputAmount   string `json:"inputAmountActual"`
	OutputAmount  string `json:"outputAmountActual"`
}

// SubmitSwap signs and submits the aggregator's swap transaction.
func (p *Provider) SubmitSwap(ctx context.Context, req venue.SwapRequest) (venue.SwapResult, error) {
	key, err := p.cred.Acquire("secondary")
	if err != nil {
		return venue.SwapResult{}, fmt.Errorf("jupiter: %w", err)
	}
	defer key.Release()

	payload := map[string]interface{}{
		"symbol":        req.Symbol,
		"side":          req.Side,
		"tradeSize":     req.TradeSize.String(),
		"quoteCurrency": req.QuoteCurrency,
		"slippageBps":   req.SlippageBps,
		"minOutput":     req.MinOutput.String(),
	}
	var resp swapResponse
	if _, err := p.client.PostJSON(ctx, "/v6/swap", nil, payload, &resp); err != nil {
		return venue.SwapResult{}, fmt.Errorf("jupiter: submit swap: %w", err)
	}
	in, _ := money.NewFromString(resp.InputAmount)
	out, _ := money.NewFromString(resp.OutputAmount)
	return venue.SwapResult{
		TxID:         resp.TxID,
		ActualInput:  in,
		ActualOutput: out,
		SettledAt:    time.Now(),
	}, nil
}

type balanceResponse struct {
	Balances map[string]string `json:"balances"`
	Native   string            `json:"nativeBalance"`
}

// GetBalances queries the wallet's token account balances by mint, keyed
// back onto the symbols this provider was configured with. Wallet/RPC
// internals are out of scope; this assumes the endpoint already scopes the
// query to the configured signer's address.
func (p *Provider) GetBalances(ctx context.Context, symbols []string) (map[string]domain.TokenBalance, money.Amount, error) {
	var resp balanceResponse
	if _, err := p.client.GetJSON(ctx, "/v1/balances", nil, &resp); err != nil {
		return nil, money.Zero, fmt.Errorf("jupiter: get balances: %w", err)
	}

	now := time.Now()
	out := make(map[string]domain.TokenBalance, len(symbols))
	for _, sym := range symbols {
		mint, ok := p.mints[sym]
		if !ok {
			out[sym] = domain.TokenBalance{Symbol: sym, LastUpdated: now}
			continue
		}
		raw, ok := resp.Balances[mint]
		if !ok {
			out[sym] = domain.TokenBalance{Symbol: sym, LastUpdated: now}
			continue
		}
		amt, err := money.NewFromString(raw)
		if err != nil {
			return nil, money.Zero, fmt.Errorf("jupiter: parse balance for %s: %w", sym, err)
		}
		out[sym] = domain.TokenBalance{Symbol: sym, Balance: amt, LastUpdated: now}
	}

	native := money.Zero
	if resp.Native != "" {
		amt, err := money.NewFromString(resp.Native)
		if err != nil {
			return nil, money.Zero, fmt.Errorf("jupiter: parse native balance: %w", err)
		}
		native = amt
	}
	return out, native, nil
}

var _ venue.Provider = (*Provider)(nil)
var _ venue.Executor = (*Provider)(nil)
var _ venue.BalanceReader = (*Provider)(nil)
