package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arb-core/internal/domain"
	"arb-core/internal/money"
	"arb-core/internal/state"
)

type fakeBalanceReader struct {
	venueName domain.Venue
	balances  map[string]domain.TokenBalance
	native    money.Amount
	err       error
}

func (f fakeBalanceReader) Venue() domain.Venue { return f.venueName }
func (f fakeBalanceReader) GetBalances(ctx context.Context, symbols []string) (map[string]domain.TokenBalance, money.Amount, error) {
	if f.err != nil {
		return nil, money.Zero, f.err
	}
	return f.balances, f.native, nil
}

func newTestStore(t *testing.T) *state.Store {
	dir := t.TempDir()
	s := state.New(dir+"/state.json", nil)
	require.NoError(t, s.Load())
	return s
}

func TestRefreshNow_UpdatesBothVenuesOnSuccess(t *testing.T) {
	store := newTestStore(t)
	primary := fakeBalanceReader{venueName: domain.VenuePrimary, balances: map[string]domain.TokenBalance{
		"GALA": {Symbol: "GALA", Balance: money.New(1000)},
	}, native: money.New(5)}
	secondary := fakeBalanceReader{venueName: domain.VenueSecondary, balances: map[string]domain.TokenBalance{
		"GALA": {Symbol: "GALA", Balance: money.New(500)},
	}, native: money.New(2)}

	r := New(primary, secondary, store, []string{"GALA"}, 0, zerolog.Nop())
	err := r.RefreshNow(context.Background())
	require.NoError(t, err)

	snap := store.GetState()
	assert.True(t, snap.Inventory.Primary["GALA"].Balance.Cmp(money.New(1000)) == 0)
	assert.True(t, snap.Inventory.Secondary["GALA"].Balance.Cmp(money.New(500)) == 0)
	assert.True(t, snap.Inventory.NativePrimary.Cmp(money.New(5)) == 0)
}

func TestRefreshNow_KeepsPreviousDataOnPartialFailure(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.UpdateChainInventory(domain.VenuePrimary, map[string]domain.TokenBalance{
		"GALA": {Symbol: "GALA", Balance: money.New(777)},
	}, nil))

	primary := fakeBalanceReader{venueName: domain.VenuePrimary, err: errors.New("rpc timeout")}
	secondary := fakeBalanceReader{venueName: domain.VenueSecondary, balances: map[string]domain.TokenBalance{
		"GALA": {Symbol: "GALA", Balance: money.New(100)},
	}}

	r := New(primary, secondary, store, []string{"GALA"}, 0, zerolog.Nop())
	err := r.RefreshNow(context.Background())
	require.Error(t, err)

	snap := store.GetState()
	assert.True(t, snap.Inventory.Primary["GALA"].Balance.Cmp(money.New(777)) == 0, "primary balance should be unchanged after a failed refresh")
	assert.True(t, snap.Inventory.Secondary["GALA"].Balance.Cmp(money.New(100)) == 0, "secondary should still update independently")
}
