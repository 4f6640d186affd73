// Package inventory periodically polls both venues' balances into the
// state store on its own slower ticker, independent of the main scheduling
// tick. Grounded in internal/reconciliation.Service's own-ticker poll loop,
// adapted from comparing exchange positions against a local ledger to
// simply refreshing the store's inventory snapshot; a failed poll keeps the
// previous snapshot rather than overwriting it with a partial read.
package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"arb-core/internal/domain"
	"arb-core/internal/venue"
)

// Store is the subset of the state store the refresher writes to.
type Store interface {
	UpdateChainInventory(v domain.Venue, balances map[string]domain.TokenBalance, native *domain.TokenBalance) error
}

// Refresher polls both venues' balance readers on its own interval.
type Refresher struct {
	primary   venue.BalanceReader
	secondary venue.BalanceReader
	store     Store
	symbols   []string
	interval  time.Duration
	log       zerolog.Logger
}

// New constructs a Refresher. symbols is the full set of token symbols
// (arbitrage tokens plus quote-currency tokens) to fetch balances for.
func New(primary, secondary venue.BalanceReader, store Store, symbols []string, interval time.Duration, log zerolog.Logger) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{primary: primary, secondary: secondary, store: store, symbols: symbols, interval: interval, log: log}
}

// Run blocks, refreshing every interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RefreshNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RefreshNow fetches both venues' balances and applies whichever succeed.
// It is the balance checker's forced-refresh callback as well as the
// refresher's own ticker body.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	var firstErr error
	if err := r.refreshOne(ctx, r.primary, domain.VenuePrimary); err != nil {
		firstErr = err
	}
	if err := r.refreshOne(ctx, r.secondary, domain.VenueSecondary); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (r *Refresher) refreshOne(ctx context.Context, reader venue.BalanceReader, v domain.Venue) error {
	if reader == nil {
		return nil
	}
	balances, native, err := reader.GetBalances(ctx, r.symbols)
	if err != nil {
		r.log.Warn().Err(err).Str("venue", string(v)).Msg("inventory refresh failed, keeping last known balances")
		return err
	}

	nativeBal := domain.TokenBalance{Symbol: nativeSymbol(v), Balance: native, LastUpdated: time.Now()}
	if err := r.store.UpdateChainInventory(v, balances, &nativeBal); err != nil {
		r.log.Error().Err(err).Str("venue", string(v)).Msg("failed to persist refreshed inventory")
		return err
	}
	r.log.Info().Str("venue", string(v)).Int("symbols", len(balances)).Msg("inventory refreshed")
	return nil
}

func nativeSymbol(v domain.Venue) string {
	if v == domain.VenuePrimary {
		return "GALA"
	}
	return "SOL"
}
