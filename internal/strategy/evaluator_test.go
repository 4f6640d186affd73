package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arb-core/internal/domain"
	"arb-core/internal/money"
	"arb-core/internal/rate"
	"arb-core/internal/risk"
)

type fakeProvider struct {
	venue        domain.Venue
	price        string
	impact       int
	liquidity    string
	quoteToRef   string
}

func (f fakeProvider) Venue() domain.Venue { return f.venue }

func (f fakeProvider) GetQuote(ctx context.Context, symbol string, tradeSize money.Amount, op domain.Side, quoteCurrency string) (domain.Quote, error) {
	price, _ := money.NewFromString(f.price)
	liq, _ := money.NewFromString(f.liquidity)
	now := time.Now()
	q := domain.Quote{
		Venue: f.venue, Symbol: symbol, Side: op, TradeSize: tradeSize, QuoteCurrency: quoteCurrency,
		Price: price, PriceImpactBps: f.impact, MinOutput: price.Mul(tradeSize),
		Timestamp: now, ExpiresAt: now.Add(time.Minute), Liquidity: &liq,
	}
	if f.quoteToRef != "" {
		refRate, _ := money.NewFromString(f.quoteToRef)
		q.QuoteToRef = domain.QuoteToRefHint{Rate: refRate, Set: true}
	}
	return q, nil
}

type alwaysOutOfCooldown struct{}

func (alwaysOutOfCooldown) IsTokenInCooldown(string) bool { return false }

func TestEvaluator_SelectsProfitableForwardStrategy(t *testing.T) {
	registry := NewRegistry(map[string]domain.Strategy{
		"fwd": {ID: "fwd", Enabled: true, Priority: 1,
			PrimarySide:   domain.StrategySide{QuoteCurrency: "GALA", Op: domain.SideSell},
			SecondarySide: domain.StrategySide{QuoteCurrency: "SOL", Op: domain.SideBuy}},
	})

	primary := fakeProvider{venue: domain.VenuePrimary, price: "0.001234", impact: 25, liquidity: "1000000"}
	secondary := fakeProvider{venue: domain.VenueSecondary, price: "0.00000804", impact: 15, liquidity: "1000000", quoteToRef: "0.0065"}

	converter := rate.New("GALA", nil, nil)
	riskMgr := risk.NewManager(risk.Config{MinEdgeBps: 30, RiskBufferBps: 10, MaxPriceImpactBps: 250})

	eval := NewEvaluator(registry, primary, secondary, converter, riskMgr, alwaysOutOfCooldown{}, time.Millisecond, zerolog.Nop())

	size, _ := money.NewFromString("1500")
	token := domain.TokenDescriptor{Symbol: "GALA", TradeSize: size, Enabled: true}

	refUsd, _ := money.NewFromString("0.05")
	results, best := eval.EvaluateToken(context.Background(), token, TokenEvalInput{
		PrimaryBalance: money.New(1000000), SecondaryBalance: money.New(1000000), RefBalance: money.New(1000000),
		RefUsdPrice: &refUsd,
	})

	require.Len(t, results, 1)
	require.NotNil(t, best)
	assert.True(t, best.Proceed())
	assert.Equal(t, "fwd", best.Strategy.ID)
}

func TestEvaluator_NoStrategiesReturnsNilBest(t *testing.T) {
	registry := NewRegistry(map[string]domain.Strategy{})
	primary := fakeProvider{venue: domain.VenuePrimary}
	secondary := fakeProvider{venue: domain.VenueSecondary}
	converter := rate.New("GALA", nil, nil)
	riskMgr := risk.NewManager(risk.Config{})
	eval := NewEvaluator(registry, primary, secondary, converter, riskMgr, alwaysOutOfCooldown{}, time.Millisecond, zerolog.Nop())

	_, best := eval.EvaluateToken(context.Background(), domain.TokenDescriptor{Symbol: "GALA", TradeSize: money.New(100)}, TokenEvalInput{})
	assert.Nil(t, best)
}
