// Package bridge implements the auto-bridge controller (C11): it detects
// per-token inventory imbalance between the two venues, submits a cross-
// chain transfer to restore the configured split, and tracks the transfer
// through to completion or exhausted retries. Grounded in the reconciler's
// periodic-poll shape (internal/reconciliation/service.go) but applied to
// a ledger of outstanding transfers instead of position diffs, with no
// auto-sync-without-asking: every bridge is explicitly recorded before
// submission.
package bridge

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"arb-core/internal/domain"
	"arb-core/internal/events"
	"arb-core/internal/money"
	"arb-core/internal/state"
)

// Config is the `autoBridging` section of the trading config file.
type Config struct {
	Enabled                   bool
	ImbalanceThresholdPercent float64
	TargetSplitPercent        float64
	MinRebalanceAmount        money.Amount
	CheckIntervalMinutes      int
	CooldownMinutes           int
	MaxBridgesPerDay          int
	EnabledTokens             []string
	SkipTokens                []string
	MaxRetries                int
}

func (c Config) effectiveMaxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 3
}

// Transferer submits and polls a cross-chain transfer. One implementation
// per venue pair; the chain-specific bridging protocols themselves are out
// of scope here.
type Transferer interface {
	SubmitTransfer(ctx context.Context, token string, from, to domain.Venue, amount money.Amount) (chainRef string, err error)
	PollTransfer(ctx context.Context, chainRef string) (domain.BridgeStatus, error)
}

// Store is the subset of the state store the controller reads and writes.
type Store interface {
	GetState() *state.Snapshot
	AppendBridge(record domain.BridgeRecord) error
	UpdateBridgeStatus(id string, status domain.BridgeStatus, lastPollAt time.Time) error
	RecordChainRef(id string, chainRef string) error
	IncrementBridgeAttempts(id string) error
	ApplyTentativeBalance(venue domain.Venue, symbol string, delta money.Amount) error
}

func tokenBalance(snap *state.Snapshot, v domain.Venue, symbol string) domain.TokenBalance {
	m := snap.Inventory.Primary
	if v == domain.VenueSecondary {
		m = snap.Inventory.Secondary
	}
	return m[symbol]
}

// Controller implements C11.
type Controller struct {
	cfg        Config
	store      Store
	transferer Transferer
	bus        *events.Bus
	log        zerolog.Logger

	bridgesToday map[string]int
	dayMark      string
}

// NewController wires a bridge controller. bus may be nil, in which case
// bridge.submitted/bridge.settled never publish (used by tests that don't
// care about the event stream).
func NewController(cfg Config, store Store, transferer Transferer, bus *events.Bus, log zerolog.Logger) *Controller {
	return &Controller{cfg: cfg, store: store, transferer: transferer, bus: bus, log: log, bridgesToday: make(map[string]int)}
}

func (c *Controller) skip(symbol string) bool {
	for _, s := range c.cfg.SkipTokens {
		if s == symbol {
			return true
		}
	}
	if len(c.cfg.EnabledTokens) == 0 {
		return false
	}
	for _, s := range c.cfg.EnabledTokens {
		if s == symbol {
			return false
		}
	}
	return true
}

func (c *Controller) resetDailyCounterIfNeeded() {
	today := time.Now().Format("2006-01-02")
	if c.dayMark != today {
		c.dayMark = today
		c.bridgesToday = make(map[string]int)
	}
}

// CheckImbalance evaluates every enabled token and issues a bridge for any
// whose imbalance exceeds the configured threshold, per §4.11.
func (c *Controller) CheckImbalance(ctx context.Context, tokens []domain.TokenDescriptor) {
	if !c.cfg.Enabled {
		return
	}
	c.resetDailyCounterIfNeeded()

	snap := c.store.GetState()
	for _, token := range tokens {
		if c.skip(token.Symbol) {
			continue
		}
		if c.cfg.MaxBridgesPerDay > 0 && c.bridgesToday[token.Symbol] >= c.cfg.MaxBridgesPerDay {
			continue
		}
		if c.inCooldown(snap, token.Symbol) {
			continue
		}

		primaryBal := tokenBalance(snap, domain.VenuePrimary, token.Symbol)
		secondaryBal := tokenBalance(snap, domain.VenueSecondary, token.Symbol)
		total := primaryBal.Balance.Add(secondaryBal.Balance)
		if total.IsZero() {
			continue
		}

		imbalance := imbalanceRatio(primaryBal.Balance, total)
		if imbalance <= c.cfg.ImbalanceThresholdPercent {
			continue
		}

		from, to, amount := rebalancePlan(primaryBal.Balance, secondaryBal.Balance, total, c.cfg.TargetSplitPercent)
		if amount.LessThan(c.cfg.MinRebalanceAmount) {
			continue
		}

		c.submit(ctx, token.Symbol, from, to, amount)
		c.bridgesToday[token.Symbol]++
	}
}

func (c *Controller) inCooldown(snap *state.Snapshot, symbol string) bool {
	cooldown := time.Duration(c.cfg.CooldownMinutes) * time.Minute
	if cooldown <= 0 {
		return false
	}
	for _, b := range snap.Bridges {
		if b.Token == symbol && time.Since(b.SubmittedAt) < cooldown {
			return true
		}
	}
	return false
}

func (c *Controller) submit(ctx context.Context, symbol string, from, to domain.Venue, amount money.Amount) {
	record := domain.BridgeRecord{
		ID: uuid.NewString(), Token: symbol, FromVenue: from, ToVenue: to,
		Amount: amount, SubmittedAt: time.Now(), Status: domain.BridgePending,
	}
	if err := c.store.AppendBridge(record); err != nil {
		c.log.Error().Err(err).Str("token", symbol).Msg("failed to record bridge before submission")
		return
	}

	chainRef, err := c.transferer.SubmitTransfer(ctx, symbol, from, to, amount)
	if err != nil {
		c.log.Warn().Err(err).Str("token", symbol).Msg("bridge submission failed")
		_ = c.store.UpdateBridgeStatus(record.ID, domain.BridgeFailed, time.Now())
		return
	}
	if err := c.store.RecordChainRef(record.ID, chainRef); err != nil {
		c.log.Error().Err(err).Str("token", symbol).Str("chainRef", chainRef).Msg("failed to record chainRef")
	}
	c.log.Info().Str("token", symbol).Str("chainRef", chainRef).Msg("bridge submitted")
	if c.bus != nil {
		c.bus.Publish(events.EventBridgeSubmitted, record)
	}
}

// pollRef returns the chainRef a pending bridge should be polled on: the
// most recent one the bridge service issued, since a retried transfer may
// have been resubmitted under a new ref.
func pollRef(b domain.BridgeRecord) (string, bool) {
	if len(b.ChainRefs) == 0 {
		return "", false
	}
	return b.ChainRefs[len(b.ChainRefs)-1], true
}

// PollPending polls every outstanding bridge and reconciles completions or
// retries failures with exponential backoff up to MaxRetries.
func (c *Controller) PollPending(ctx context.Context) {
	snap := c.store.GetState()
	for _, b := range snap.Bridges {
		if b.Status != domain.BridgePending {
			continue
		}
		if !c.backoffElapsed(b) {
			continue
		}
		chainRef, ok := pollRef(b)
		if !ok {
			c.log.Warn().Str("token", b.Token).Str("id", b.ID).Msg("pending bridge has no chainRef to poll")
			continue
		}

		status, err := c.transferer.PollTransfer(ctx, chainRef)
		if err != nil {
			c.log.Warn().Err(err).Str("token", b.Token).Msg("bridge poll failed")
			continue
		}

		switch status {
		case domain.BridgeCompleted:
			c.reconcileCompletion(b)
			_ = c.store.UpdateBridgeStatus(b.ID, domain.BridgeCompleted, time.Now())
		case domain.BridgeFailed:
			c.handleFailure(b)
		default:
			_ = c.store.UpdateBridgeStatus(b.ID, domain.BridgePending, time.Now())
		}
	}
}

func (c *Controller) handleFailure(b domain.BridgeRecord) {
	if b.Attempts+1 >= c.cfg.effectiveMaxRetries() {
		_ = c.store.UpdateBridgeStatus(b.ID, domain.BridgeFailed, time.Now())
		c.log.Error().Str("token", b.Token).Int("attempts", b.Attempts+1).Msg("bridge exhausted retries")
		return
	}
	_ = c.store.IncrementBridgeAttempts(b.ID)
	_ = c.store.UpdateBridgeStatus(b.ID, domain.BridgePending, time.Now())
}

func (c *Controller) backoffElapsed(b domain.BridgeRecord) bool {
	if b.Attempts == 0 {
		return true
	}
	backoff := time.Duration(math.Pow(2, float64(b.Attempts))) * time.Minute
	return time.Since(b.LastPollAt) >= backoff
}

// reconcileCompletion applies the tentative debit/credit; the next
// inventory refresh (C13) overwrites it with confirmed balances.
func (c *Controller) reconcileCompletion(b domain.BridgeRecord) {
	_ = c.store.ApplyTentativeBalance(b.FromVenue, b.Token, b.Amount.Neg())
	_ = c.store.ApplyTentativeBalance(b.ToVenue, b.Token, b.Amount)
	if c.bus != nil {
		c.bus.Publish(events.EventBridgeSettled, b)
	}
}

// imbalanceRatio reports |primary - target| / total for a 50/50 default
// target; rebalancePlan below derives the actual move against the
// configured split.
func imbalanceRatio(primary, total money.Amount) float64 {
	t := total.Float64()
	if t == 0 {
		return 0
	}
	return math.Abs(primary.Float64()/t - 0.5)
}

// rebalancePlan computes the minimum transfer that restores targetSplit on
// primary, moving from whichever venue is overweight.
func rebalancePlan(primary, secondary, total money.Amount, targetSplit float64) (from, to domain.Venue, amount money.Amount) {
	targetPrimary := total.BpsOf(int(targetSplit * 10000))
	if primary.GreaterThan(targetPrimary) {
		return domain.VenuePrimary, domain.VenueSecondary, primary.Sub(targetPrimary)
	}
	return domain.VenueSecondary, domain.VenuePrimary, targetPrimary.Sub(primary)
}
