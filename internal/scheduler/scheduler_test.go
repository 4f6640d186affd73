package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arb-core/internal/domain"
	"arb-core/internal/executor"
	"arb-core/internal/money"
	"arb-core/internal/rate"
	"arb-core/internal/risk"
	"arb-core/internal/state"
	"arb-core/internal/strategy"
	"arb-core/internal/venue"
)

type fakeQuoteProvider struct {
	venueName  domain.Venue
	price      string
	quoteToRef string
}

func (f fakeQuoteProvider) Venue() domain.Venue { return f.venueName }
func (f fakeQuoteProvider) GetQuote(ctx context.Context, symbol string, tradeSize money.Amount, op domain.Side, quoteCurrency string) (domain.Quote, error) {
	price, _ := money.NewFromString(f.price)
	liquidity := money.New(1000000)
	q := domain.Quote{
		Venue: f.venueName, Symbol: symbol, Side: op, TradeSize: tradeSize,
		QuoteCurrency: quoteCurrency, Price: price, MinOutput: price.Mul(tradeSize),
		Timestamp: time.Now(), ExpiresAt: time.Now().Add(time.Minute), Liquidity: &liquidity,
	}
	if f.quoteToRef != "" {
		refRate, _ := money.NewFromString(f.quoteToRef)
		q.QuoteToRef = domain.QuoteToRefHint{Rate: refRate, Set: true}
	}
	return q, nil
}

type fakeSwapExecutor struct {
	venueName domain.Venue
	txID      string
	failWith  error
}

func (f fakeSwapExecutor) Venue() domain.Venue { return f.venueName }
func (f fakeSwapExecutor) SubmitSwap(ctx context.Context, req venue.SwapRequest) (venue.SwapResult, error) {
	if f.failWith != nil {
		return venue.SwapResult{}, f.failWith
	}
	return venue.SwapResult{TxID: f.txID, ActualInput: req.TradeSize, ActualOutput: req.MinOutput}, nil
}

type alwaysOutOfCooldown struct{}

func (alwaysOutOfCooldown) IsTokenInCooldown(symbol string) bool { return false }

type fakeBalancer struct {
	canTrade          bool
	checkBalancesCalls int
}

func (f *fakeBalancer) CanTokenTrade(symbol string) bool { return f.canTrade }
func (f *fakeBalancer) CheckBalances(ctx context.Context, tokens []domain.TokenDescriptor, force bool) {
	f.checkBalancesCalls++
}

type fakeBridger struct {
	checkImbalanceCalls int
	pollPendingCalls    int
}

func (f *fakeBridger) CheckImbalance(ctx context.Context, tokens []domain.TokenDescriptor) { f.checkImbalanceCalls++ }
func (f *fakeBridger) PollPending(ctx context.Context)                                     { f.pollPendingCalls++ }

type fakeTradeRecorder struct {
	entries []domain.TradeLogEntry
}

func (f *fakeTradeRecorder) Record(ctx context.Context, entry domain.TradeLogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func newTestStore(t *testing.T) *state.Store {
	dir := t.TempDir()
	s := state.New(dir+"/state.json", nil)
	require.NoError(t, s.Load())
	require.NoError(t, s.UpdateChainInventory(domain.VenuePrimary, map[string]domain.TokenBalance{
		"GALA": {Symbol: "GALA", Balance: money.New(1000000)},
	}, nil))
	require.NoError(t, s.UpdateChainInventory(domain.VenueSecondary, map[string]domain.TokenBalance{
		"GALA": {Symbol: "GALA", Balance: money.New(1000000)},
	}, nil))
	return s
}

func forwardToken() domain.TokenDescriptor {
	return domain.TokenDescriptor{Symbol: "GALA", Enabled: true, TradeSize: money.New(1500)}
}

func forwardStrategy() domain.Strategy {
	return domain.Strategy{
		ID:            "fwd",
		PrimarySide:   domain.StrategySide{QuoteCurrency: "GALA", Op: domain.SideSell},
		SecondarySide: domain.StrategySide{QuoteCurrency: "SOL", Op: domain.SideBuy},
		Enabled:       true,
	}
}

func newEvaluator(primaryPrice, secondaryPrice, secondaryQuoteToRef string) *strategy.Evaluator {
	reg := strategy.NewRegistry(map[string]domain.Strategy{"fwd": forwardStrategy()})
	converter := rate.New("GALA", nil, nil)
	riskMgr := risk.NewManager(risk.Config{MaxPriceImpactBps: 1000, FallbackRefUsdPrice: ptr(money.New(1))})
	return strategy.NewEvaluator(reg,
		fakeQuoteProvider{venueName: domain.VenuePrimary, price: primaryPrice},
		fakeQuoteProvider{venueName: domain.VenueSecondary, price: secondaryPrice, quoteToRef: secondaryQuoteToRef},
		converter, riskMgr, alwaysOutOfCooldown{}, time.Millisecond, zerolog.Nop())
}

func ptr(a money.Amount) *money.Amount { return &a }

func newExecutor(primaryFail, secondaryFail error) *executor.Executor {
	return executor.New(
		fakeSwapExecutor{venueName: domain.VenuePrimary, txID: "ptx", failWith: primaryFail},
		fakeSwapExecutor{venueName: domain.VenueSecondary, txID: "stx", failWith: secondaryFail},
		fakeQuoteProvider{venueName: domain.VenuePrimary, price: "0.001234"},
		fakeQuoteProvider{venueName: domain.VenueSecondary, price: "0.00000804", quoteToRef: "0.0065"},
		nil, executor.DefaultSlippageParams(50), zerolog.Nop(),
	)
}

func TestTick_PausedSkipsTradingButStillRunsBridge(t *testing.T) {
	store := newTestStore(t)
	balancer := &fakeBalancer{canTrade: true}
	bridger := &fakeBridger{}
	eval := newEvaluator("0.001234", "0.00000804", "0.0065")
	exec := newExecutor(nil, nil)

	s := New(Config{Mode: domain.ModeDryRun}, []domain.TokenDescriptor{forwardToken()}, eval, exec, balancer, bridger, store, nil, nil, zerolog.Nop())
	s.SetPaused(true)

	s.Tick(context.Background())

	assert.Equal(t, 1, bridger.checkImbalanceCalls)
	assert.Equal(t, 1, bridger.pollPendingCalls)
	assert.Equal(t, 0, balancer.checkBalancesCalls)
}

func TestTick_DryRunRecordsTradeWithoutTouchingVenues(t *testing.T) {
	store := newTestStore(t)
	balancer := &fakeBalancer{canTrade: true}
	bridger := &fakeBridger{}
	recorder := &fakeTradeRecorder{}
	eval := newEvaluator("0.001234", "0.00000804", "0.0065")
	exec := newExecutor(errors.New("should never be called"), errors.New("should never be called"))

	s := New(Config{Mode: domain.ModeDryRun}, []domain.TokenDescriptor{forwardToken()}, eval, exec, balancer, bridger, store, recorder, nil, zerolog.Nop())

	s.Tick(context.Background())

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, domain.ModeDryRun, recorder.entries[0].Mode)
	assert.True(t, recorder.entries[0].Success)
	assert.Equal(t, int64(1), store.GetState().TradeCount)
	assert.True(t, store.IsTokenInCooldown("GALA"))
}

func TestEvaluateAndExecute_LiveBothSucceedRecordsTrade(t *testing.T) {
	store := newTestStore(t)
	balancer := &fakeBalancer{canTrade: true}
	bridger := &fakeBridger{}
	recorder := &fakeTradeRecorder{}
	eval := newEvaluator("0.001234", "0.00000804", "0.0065")
	exec := newExecutor(nil, nil)

	s := New(Config{Mode: domain.ModeLive}, []domain.TokenDescriptor{forwardToken()}, eval, exec, balancer, bridger, store, recorder, nil, zerolog.Nop())

	executed := s.evaluateAndExecute(context.Background(), forwardToken())
	assert.True(t, executed)
	require.Len(t, recorder.entries, 1)
	assert.True(t, recorder.entries[0].Success)
	assert.Equal(t, "ptx", recorder.entries[0].PrimaryTxID)
}

func TestBreaker_TripsToPausedAfterConsecutiveFailures(t *testing.T) {
	store := newTestStore(t)
	balancer := &fakeBalancer{canTrade: true}
	bridger := &fakeBridger{}
	eval := newEvaluator("0.001234", "0.00000804", "0.0065")
	exec := newExecutor(errors.New("primary broadcast failed"), errors.New("secondary broadcast failed"))

	s := New(Config{Mode: domain.ModeLive, BreakerConsecutiveFailures: 2}, []domain.TokenDescriptor{forwardToken()}, eval, exec, balancer, bridger, store, nil, nil, zerolog.Nop())

	for i := 0; i < 2; i++ {
		s.evaluateAndExecute(context.Background(), forwardToken())
	}

	assert.True(t, s.Paused())
}

func TestBreaker_PartialSuccessDoesNotTripBreaker(t *testing.T) {
	store := newTestStore(t)
	balancer := &fakeBalancer{canTrade: true}
	bridger := &fakeBridger{}
	eval := newEvaluator("0.001234", "0.00000804", "0.0065")
	exec := newExecutor(nil, errors.New("secondary broadcast failed"))

	s := New(Config{Mode: domain.ModeLive, BreakerConsecutiveFailures: 2}, []domain.TokenDescriptor{forwardToken()}, eval, exec, balancer, bridger, store, nil, nil, zerolog.Nop())

	for i := 0; i < 5; i++ {
		s.evaluateAndExecute(context.Background(), forwardToken())
	}

	assert.False(t, s.Paused())
}
