package balance

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"arb-core/internal/domain"
	"arb-core/internal/money"
	"arb-core/internal/state"
)

type fakeInventory struct {
	snap *state.Snapshot
}

func (f fakeInventory) GetState() *state.Snapshot { return f.snap }

func snapshotWith(symbol string, primaryBal, secondaryBal int64) *state.Snapshot {
	return &state.Snapshot{
		Inventory: domain.InventorySnapshot{
			Primary:   map[string]domain.TokenBalance{symbol: {Symbol: symbol, Balance: money.New(primaryBal)}},
			Secondary: map[string]domain.TokenBalance{symbol: {Symbol: symbol, Balance: money.New(secondaryBal)}},
		},
	}
}

func TestCheckBalances_PausesInsufficientToken(t *testing.T) {
	inv := fakeInventory{snap: snapshotWith("GALA", 10, 1000)}
	c := NewChecker(Config{}, inv, nil, zerolog.Nop())
	token := domain.TokenDescriptor{Symbol: "GALA", TradeSize: money.New(100)}

	c.CheckBalances(context.Background(), []domain.TokenDescriptor{token}, true)
	assert.False(t, c.CanTokenTrade("GALA"))
}

func TestCheckBalances_ResumesOnceSufficient(t *testing.T) {
	inv := fakeInventory{snap: snapshotWith("GALA", 10, 1000)}
	c := NewChecker(Config{}, inv, nil, zerolog.Nop())
	token := domain.TokenDescriptor{Symbol: "GALA", TradeSize: money.New(100)}

	c.CheckBalances(context.Background(), []domain.TokenDescriptor{token}, true)
	assert.False(t, c.CanTokenTrade("GALA"))

	inv.snap = snapshotWith("GALA", 1000, 1000)
	c.CheckBalances(context.Background(), []domain.TokenDescriptor{token}, true)
	assert.True(t, c.CanTokenTrade("GALA"))
}

func TestCheckBalances_SkipsConfiguredTokens(t *testing.T) {
	inv := fakeInventory{snap: snapshotWith("GALA", 0, 0)}
	c := NewChecker(Config{SkipTokens: []string{"GALA"}}, inv, nil, zerolog.Nop())
	token := domain.TokenDescriptor{Symbol: "GALA", TradeSize: money.New(100)}

	c.CheckBalances(context.Background(), []domain.TokenDescriptor{token}, true)
	assert.True(t, c.CanTokenTrade("GALA"))
}

func TestCheckBalances_UnknownTokenDefaultsTrue(t *testing.T) {
	inv := fakeInventory{snap: snapshotWith("GALA", 1000, 1000)}
	c := NewChecker(Config{}, inv, nil, zerolog.Nop())
	assert.True(t, c.CanTokenTrade("UNSEEN"))
}

func TestCheckBalances_PausesBelowPerTokenMinimumEvenWhenAboveTradeSize(t *testing.T) {
	inv := fakeInventory{snap: snapshotWith("GALA", 150, 1000)}
	c := NewChecker(Config{}, inv, nil, zerolog.Nop())
	min := money.New(500)
	token := domain.TokenDescriptor{Symbol: "GALA", TradeSize: money.New(100), MinBalancePrimary: &min}

	c.CheckBalances(context.Background(), []domain.TokenDescriptor{token}, true)
	assert.False(t, c.CanTokenTrade("GALA"), "primary balance of 150 is above trade size 100 but below the configured minimum of 500")
}

func TestCheckBalances_MinimumBelowTradeSizeDoesNotLowerTheBar(t *testing.T) {
	inv := fakeInventory{snap: snapshotWith("GALA", 50, 1000)}
	c := NewChecker(Config{}, inv, nil, zerolog.Nop())
	min := money.New(10)
	token := domain.TokenDescriptor{Symbol: "GALA", TradeSize: money.New(100), MinBalancePrimary: &min}

	c.CheckBalances(context.Background(), []domain.TokenDescriptor{token}, true)
	assert.False(t, c.CanTokenTrade("GALA"), "balance of 50 is still below the trade size of 100 regardless of the lower minimum")
}
