// Package balance gates trading per-token on current inventory: it compares
// the state store's balances against per-token minima and the trade size,
// maintains a pause flag per token, and resumes a token automatically once
// funds recover. Structured as a cache refreshed on a cooldown timer, with
// one pause flag per token that both venues' balances feed into.
package balance

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arb-core/internal/domain"
	"arb-core/internal/money"
	"arb-core/internal/state"
)

// Inventory is the subset of the state store the checker reads.
type Inventory interface {
	GetState() *state.Snapshot
}

// Config is the `balanceChecking` section of the trading config file.
type Config struct {
	MinNativePrimary            money.Amount
	MinNativeSecondary          money.Amount
	BalanceCheckCooldownSeconds int
	SkipTokens                  []string
}

// Checker implements C10: per-token pause/resume gating on inventory.
type Checker struct {
	cfg     Config
	store   Inventory
	refresh func(ctx context.Context) error
	log     zerolog.Logger

	mu          sync.RWMutex
	paused      map[string]bool
	lastChecked time.Time
}

// NewChecker builds a Checker. refresh, if non-nil, is invoked before
// reading the snapshot when CheckBalances is called with force=true — it is
// the inventory refresher's RefreshNow, wired in cmd/arb-core.
func NewChecker(cfg Config, store Inventory, refresh func(ctx context.Context) error, log zerolog.Logger) *Checker {
	return &Checker{
		cfg: cfg, store: store, refresh: refresh, log: log,
		paused: make(map[string]bool),
	}
}

func (c *Checker) skip(symbol string) bool {
	for _, s := range c.cfg.SkipTokens {
		if s == symbol {
			return true
		}
	}
	return false
}

// CanTokenTrade reports whether symbol may trade, i.e. is not currently
// paused for insufficient balance.
func (c *Checker) CanTokenTrade(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.paused[symbol]
}

// CheckBalances refreshes pause flags from the state store's current
// inventory. force bypasses the cooldown since the last check.
func (c *Checker) CheckBalances(ctx context.Context, tokens []domain.TokenDescriptor, force bool) {
	c.mu.Lock()
	cooldown := time.Duration(c.cfg.BalanceCheckCooldownSeconds) * time.Second
	if !force && cooldown > 0 && time.Since(c.lastChecked) < cooldown {
		c.mu.Unlock()
		return
	}
	c.lastChecked = time.Now()
	c.mu.Unlock()

	if force && c.refresh != nil {
		if err := c.refresh(ctx); err != nil {
			c.log.Warn().Err(err).Msg("forced inventory refresh failed, using last known balances")
		}
	}

	snap := c.store.GetState()

	for _, token := range tokens {
		if c.skip(token.Symbol) {
			continue
		}
		sufficient := c.tokenSufficient(snap, token)

		c.mu.Lock()
		wasPaused := c.paused[token.Symbol]
		c.paused[token.Symbol] = !sufficient
		c.mu.Unlock()

		if wasPaused && sufficient {
			c.log.Info().Str("token", token.Symbol).Msg("balance recovered, resuming token")
		} else if !wasPaused && !sufficient {
			c.log.Warn().Str("token", token.Symbol).Msg("insufficient balance, pausing token")
		}
	}

	if c.cfg.MinNativePrimary.IsPositive() && snap.Inventory.NativePrimary.LessThan(c.cfg.MinNativePrimary) {
		c.log.Warn().Msg("primary native balance below minimum")
	}
	if c.cfg.MinNativeSecondary.IsPositive() && snap.Inventory.NativeSecondary.LessThan(c.cfg.MinNativeSecondary) {
		c.log.Warn().Msg("secondary native balance below minimum")
	}
}

// requiredBalance is the higher of the trade size and the token's configured
// per-venue minimum, so a token with a minimum set below its trade size
// still gates correctly on the trade size alone.
func requiredBalance(tradeSize money.Amount, min *money.Amount) money.Amount {
	if min != nil && min.GreaterThan(tradeSize) {
		return *min
	}
	return tradeSize
}

func (c *Checker) tokenSufficient(snap *state.Snapshot, token domain.TokenDescriptor) bool {
	primaryBal, ok := snap.Inventory.Primary[token.Symbol]
	if !ok || primaryBal.Balance.LessThan(requiredBalance(token.TradeSize, token.MinBalancePrimary)) {
		return false
	}
	secondaryBal, ok := snap.Inventory.Secondary[token.Symbol]
	if !ok || secondaryBal.Balance.LessThan(requiredBalance(token.TradeSize, token.MinBalanceSecondary)) {
		return false
	}
	return true
}
