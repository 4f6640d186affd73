package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arb-core/internal/domain"
	"arb-core/internal/events"
	"arb-core/internal/money"
	"arb-core/internal/venue"
)

type fakeQuoter struct {
	venue domain.Venue
	price string
}

func (f fakeQuoter) Venue() domain.Venue { return f.venue }
func (f fakeQuoter) GetQuote(ctx context.Context, symbol string, tradeSize money.Amount, op domain.Side, quoteCurrency string) (domain.Quote, error) {
	price, _ := money.NewFromString(f.price)
	return domain.Quote{Venue: f.venue, Symbol: symbol, Side: op, TradeSize: tradeSize, QuoteCurrency: quoteCurrency, Price: price, MinOutput: price.Mul(tradeSize)}, nil
}

type fakeSwapExecutor struct {
	venue  domain.Venue
	txID   string
	failWith error
}

func (f fakeSwapExecutor) Venue() domain.Venue { return f.venue }
func (f fakeSwapExecutor) SubmitSwap(ctx context.Context, req venue.SwapRequest) (venue.SwapResult, error) {
	if f.failWith != nil {
		return venue.SwapResult{}, f.failWith
	}
	return venue.SwapResult{TxID: f.txID, ActualInput: req.TradeSize, ActualOutput: req.MinOutput}, nil
}

func baseStrategy() domain.Strategy {
	return domain.Strategy{
		ID:            "fwd",
		PrimarySide:   domain.StrategySide{QuoteCurrency: "GALA", Op: domain.SideSell},
		SecondarySide: domain.StrategySide{QuoteCurrency: "SOL", Op: domain.SideBuy},
	}
}

func TestExecute_DryRunReturnsPlanWithoutTouchingVenues(t *testing.T) {
	ex := New(
		fakeSwapExecutor{venue: domain.VenuePrimary, failWith: errors.New("should never be called")},
		fakeSwapExecutor{venue: domain.VenueSecondary, failWith: errors.New("should never be called")},
		fakeQuoter{venue: domain.VenuePrimary, price: "1"},
		fakeQuoter{venue: domain.VenueSecondary, price: "1"},
		nil, DefaultSlippageParams(50), zerolog.Nop(),
	)

	token := domain.TokenDescriptor{Symbol: "GALA", TradeSize: money.New(100)}
	edgeResult := domain.EdgeResult{Income: money.New(10), Expense: money.New(8), NetEdge: money.New(2), NetEdgeBps: 250}

	plan, result, err := ex.Execute(context.Background(), domain.ModeDryRun, token, baseStrategy(), domain.DirectionForward, edgeResult, money.New(1))
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Nil(t, result)
	assert.True(t, plan.ExpectedNetEdge.Cmp(money.New(2)) == 0)
}

func TestExecute_LiveBothLegsSucceed(t *testing.T) {
	bus := events.NewBus()
	ex := New(
		fakeSwapExecutor{venue: domain.VenuePrimary, txID: "ptx"},
		fakeSwapExecutor{venue: domain.VenueSecondary, txID: "stx"},
		fakeQuoter{venue: domain.VenuePrimary, price: "0.01"},
		fakeQuoter{venue: domain.VenueSecondary, price: "0.009"},
		bus, DefaultSlippageParams(50), zerolog.Nop(),
	)

	token := domain.TokenDescriptor{Symbol: "GALA", TradeSize: money.New(100)}
	_, result, err := ex.Execute(context.Background(), domain.ModeLive, token, baseStrategy(), domain.DirectionForward, domain.EdgeResult{}, money.New(1))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.BothSucceeded())
	assert.False(t, result.PartialSuccess)
	assert.Equal(t, "ptx", result.Primary.TxID)
	assert.Equal(t, "stx", result.Secondary.TxID)
}

func TestExecute_LivePartialSuccessFlaggedNotUnwound(t *testing.T) {
	ex := New(
		fakeSwapExecutor{venue: domain.VenuePrimary, txID: "ptx"},
		fakeSwapExecutor{venue: domain.VenueSecondary, failWith: errors.New("secondary broadcast failed")},
		fakeQuoter{venue: domain.VenuePrimary, price: "0.01"},
		fakeQuoter{venue: domain.VenueSecondary, price: "0.009"},
		nil, DefaultSlippageParams(50), zerolog.Nop(),
	)

	token := domain.TokenDescriptor{Symbol: "GALA", TradeSize: money.New(100)}
	_, result, err := ex.Execute(context.Background(), domain.ModeLive, token, baseStrategy(), domain.DirectionForward, domain.EdgeResult{}, money.New(1))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.PartialSuccess)
	assert.True(t, result.Primary.Success)
	assert.False(t, result.Secondary.Success)
}

func TestSlippageParams_Clamp(t *testing.T) {
	p := DefaultSlippageParams(50)
	assert.Equal(t, 50, p.clamp(0))
	assert.Equal(t, 100, p.clamp(1000))
	assert.Equal(t, 75, p.clamp(100))
}
