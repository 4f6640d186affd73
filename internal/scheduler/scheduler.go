// Package scheduler runs the engine's fixed-interval tick: balance check,
// auto-bridge check, then per-token strategy evaluation and execution. The
// tick-select loop runs on a fixed ticker; the trip-to-paused circuit
// breaker around the execution path is sony/gobreaker.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"arb-core/internal/domain"
	"arb-core/internal/events"
	"arb-core/internal/executor"
	"arb-core/internal/state"
	"arb-core/internal/strategy"
)

// errBothLegsFailed marks a fully failed dual-leg submission as a circuit
// breaker failure; a partial success is flagged for operator attention (see
// internal/executor) but does not itself count against the breaker.
var errBothLegsFailed = errors.New("scheduler: both execution legs failed")

// Balancer is the subset of balance.Checker the scheduler drives.
type Balancer interface {
	CanTokenTrade(symbol string) bool
	CheckBalances(ctx context.Context, tokens []domain.TokenDescriptor, force bool)
}

// Bridger is the subset of bridge.Controller the scheduler drives.
type Bridger interface {
	CheckImbalance(ctx context.Context, tokens []domain.TokenDescriptor)
	PollPending(ctx context.Context)
}

// Store is the subset of the state store the scheduler reads and writes.
type Store interface {
	GetState() *state.Snapshot
	IsTokenInCooldown(symbol string) bool
	SetCooldown(symbol string, d time.Duration, reason string) error
	RecordTrade() error
}

// TradeRecorder persists one executed or dry-run trade. Wired to the
// trade-log store; nil is accepted so the scheduler is testable without one.
type TradeRecorder interface {
	Record(ctx context.Context, entry domain.TradeLogEntry) error
}

// Config holds the scheduler's settings, assembled in cmd/arb-core from the
// environment (mode, tick interval) and the trading config file.
type Config struct {
	Mode                       domain.TradeMode
	TickInterval               time.Duration
	RefSymbol                  string
	DefaultCooldown            time.Duration
	MaxDailyTrades             int
	BreakerConsecutiveFailures uint32
	BreakerOpenDuration        time.Duration
	BreakerHalfOpenMaxRequests uint32
}

func (c Config) effectiveMode() domain.TradeMode {
	if c.Mode == domain.ModeDryRun {
		return domain.ModeDryRun
	}
	return domain.ModeLive
}

// Scheduler orchestrates one tick of the engine per §4.12.
type Scheduler struct {
	cfg Config

	tokens    []domain.TokenDescriptor
	evaluator *strategy.Evaluator
	executor  *executor.Executor
	balancer  Balancer
	bridger   Bridger
	store     Store
	tradeLog  TradeRecorder
	bus       *events.Bus
	breaker   *gobreaker.CircuitBreaker
	log       zerolog.Logger

	paused atomic.Bool

	mu              sync.Mutex
	dailyTradeCount map[string]int
	dayMark         string
}

// New constructs a Scheduler. tradeLog may be nil if the trade log store
// has not been wired yet.
func New(cfg Config, tokens []domain.TokenDescriptor, evaluator *strategy.Evaluator, exec *executor.Executor, balancer Balancer, bridger Bridger, store Store, tradeLog TradeRecorder, bus *events.Bus, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		cfg: cfg, tokens: tokens, evaluator: evaluator, executor: exec,
		balancer: balancer, bridger: bridger, store: store, tradeLog: tradeLog,
		bus: bus, log: log, dailyTradeCount: make(map[string]int),
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "execution",
		MaxRequests: s.cfg.effectiveHalfOpenMaxRequests(),
		Timeout:     s.cfg.effectiveBreakerOpen(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.cfg.effectiveConsecutiveFailures()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("execution circuit breaker state change")
			if to == gobreaker.StateOpen {
				s.SetPaused(true)
				if s.bus != nil {
					s.bus.Publish(events.EventErrorExecution, "execution circuit breaker open, trading paused")
				}
			}
		},
	})
	return s
}

func (c Config) effectiveConsecutiveFailures() uint32 {
	if c.BreakerConsecutiveFailures > 0 {
		return c.BreakerConsecutiveFailures
	}
	return 3
}

func (c Config) effectiveBreakerOpen() time.Duration {
	if c.BreakerOpenDuration > 0 {
		return c.BreakerOpenDuration
	}
	return 2 * time.Minute
}

func (c Config) effectiveHalfOpenMaxRequests() uint32 {
	if c.BreakerHalfOpenMaxRequests > 0 {
		return c.BreakerHalfOpenMaxRequests
	}
	return 1
}

func (c Config) effectiveTick() time.Duration {
	if c.TickInterval > 0 {
		return c.TickInterval
	}
	return 15 * time.Second
}

func (c Config) effectiveCooldown() time.Duration {
	if c.DefaultCooldown > 0 {
		return c.DefaultCooldown
	}
	return 5 * time.Minute
}

// SetPaused flips the single global pause flag read at the top of every
// tick, per §9 open question 3.
func (s *Scheduler) SetPaused(paused bool) { s.paused.Store(paused) }

// Paused reports the current pause state.
func (s *Scheduler) Paused() bool { return s.paused.Load() }

// Run blocks, ticking every cfg.TickInterval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.effectiveTick())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one scheduling pass per §4.12.
func (s *Scheduler) Tick(ctx context.Context) {
	start := time.Now()
	if s.bus != nil {
		s.bus.Publish(events.EventTickStarted, start)
	}
	s.resetDailyCountIfNeeded()

	paused := s.Paused()
	if !paused {
		s.balancer.CheckBalances(ctx, s.tokens, false)
	}

	// Auto-bridge runs even while paused, so a rebalance can unblock a
	// balance-starved token.
	s.bridger.PollPending(ctx)
	s.bridger.CheckImbalance(ctx, s.tokens)

	executed := 0
	if !paused {
		for _, token := range s.tokens {
			if !token.Enabled || !s.balancer.CanTokenTrade(token.Symbol) {
				continue
			}
			if s.evaluateAndExecute(ctx, token) {
				executed++
			}
		}
	}

	if s.bus != nil {
		s.bus.Publish(events.EventTickCompleted, events.TickCompletedPayload{
			DurationMs: time.Since(start).Milliseconds(), ExecutedCount: executed,
		})
	}
}

func (s *Scheduler) evaluateAndExecute(ctx context.Context, token domain.TokenDescriptor) bool {
	snap := s.store.GetState()
	primaryBal := snap.Inventory.Primary[token.Symbol].Balance
	secondaryBal := snap.Inventory.Secondary[token.Symbol].Balance
	refBal := snap.Inventory.Primary[s.refSymbol()].Balance

	_, best := s.evaluator.EvaluateToken(ctx, token, strategy.TokenEvalInput{
		DailyTradeCount:  s.dailyCount(token.Symbol),
		PrimaryBalance:   primaryBal,
		SecondaryBalance: secondaryBal,
		RefBalance:       refBal,
	})
	if best == nil {
		return false
	}

	if s.bus != nil {
		s.bus.Publish(events.EventStrategyEvaluated, events.StrategyEvaluatedPayload{
			Token: token.Symbol, StrategyID: best.Strategy.ID,
			NetEdgeBps: best.Edge.NetEdgeBps, Proceed: true,
		})
	}

	plan, result, err := s.executeWithBreaker(ctx, token, *best)

	// Dry-run returns a plan with a nil result; a live attempt that never
	// reached broadcast (re-quote failure or an open breaker) returns
	// neither. Only when both are nil was nothing attempted or planned.
	if result == nil && plan == nil {
		s.log.Warn().Err(err).Str("token", token.Symbol).Msg("execution skipped, circuit breaker open or re-quote failed")
		return false
	}

	s.bumpDailyCount(token.Symbol)
	s.setCooldown(token)
	s.recordTrade(ctx, token, *best, result)
	if result != nil {
		s.balancer.CheckBalances(ctx, []domain.TokenDescriptor{token}, true)
	}
	return result == nil || result.BothSucceeded()
}

// executeWithBreaker wraps the live execution path in the circuit breaker;
// dry-run executions never touch a venue, so they bypass the breaker
// entirely and never count toward a trip.
func (s *Scheduler) executeWithBreaker(ctx context.Context, token domain.TokenDescriptor, best strategy.Result) (*executor.Plan, *executor.DualLegResult, error) {
	mode := s.cfg.effectiveMode()
	if mode == domain.ModeDryRun {
		return s.executor.Execute(ctx, mode, token, best.Strategy, best.Direction, best.Edge, best.QuoteToRefRate)
	}

	type outcome struct {
		plan   *executor.Plan
		result *executor.DualLegResult
	}
	out, err := s.breaker.Execute(func() (interface{}, error) {
		plan, result, execErr := s.executor.Execute(ctx, mode, token, best.Strategy, best.Direction, best.Edge, best.QuoteToRefRate)
		if execErr != nil {
			return outcome{plan, result}, execErr
		}
		if result != nil && result.BothFailed() {
			return outcome{plan, result}, errBothLegsFailed
		}
		return outcome{plan, result}, nil
	})
	o, _ := out.(outcome)
	return o.plan, o.result, err
}

func (s *Scheduler) setCooldown(token domain.TokenDescriptor) {
	d := s.cfg.effectiveCooldown()
	if token.CooldownMinutes != nil {
		d = time.Duration(*token.CooldownMinutes) * time.Minute
	}
	if err := s.store.SetCooldown(token.Symbol, d, "post-trade"); err != nil {
		s.log.Error().Err(err).Str("token", token.Symbol).Msg("failed to set post-trade cooldown")
	}
}

func (s *Scheduler) recordTrade(ctx context.Context, token domain.TokenDescriptor, best strategy.Result, result *executor.DualLegResult) {
	if err := s.store.RecordTrade(); err != nil {
		s.log.Error().Err(err).Msg("failed to increment trade counter")
	}
	if s.tradeLog == nil {
		return
	}

	entry := domain.TradeLogEntry{
		TimestampIso: time.Now().UTC().Format(time.RFC3339Nano),
		Token:        token.Symbol,
		TradeSize:    token.TradeSize,
		Direction:    best.Direction,
		StrategyID:   best.Strategy.ID,
		Expected: domain.ExpectedOutcome{
			GcProceeds: best.Edge.Income, SolCost: best.Edge.Expense,
			NetEdge: best.Edge.NetEdge, NetEdgeBps: best.Edge.NetEdgeBps,
			PrimaryImpactBps: best.Edge.PrimaryImpactBps, SecondaryImpactBps: best.Edge.SecondaryImpactBps,
		},
	}
	if result == nil {
		entry.Mode = domain.ModeDryRun
		entry.Success = true
	} else {
		entry.Mode = domain.ModeLive
		entry.Success = result.BothSucceeded()
		entry.PartialSuccess = result.PartialSuccess
		entry.ExecutionDurationMs = result.DurationMs
		entry.PrimaryTxID = result.Primary.TxID
		entry.SecondaryTxID = result.Secondary.TxID
		if result.Primary.Err != nil {
			entry.PrimaryError = result.Primary.Err.Error()
		}
		if result.Secondary.Err != nil {
			entry.SecondaryError = result.Secondary.Err.Error()
		}
		if entry.Success {
			entry.Actual = &domain.ActualOutcome{
				GcProceeds: result.Primary.Output, SolCost: result.Secondary.Output,
				NetEdge: best.Edge.NetEdge,
			}
		}
	}

	if err := s.tradeLog.Record(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("token", token.Symbol).Msg("failed to append trade log entry")
	}
}

func (s *Scheduler) refSymbol() string {
	if s.cfg.RefSymbol != "" {
		return s.cfg.RefSymbol
	}
	return "GALA"
}

func (s *Scheduler) resetDailyCountIfNeeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := time.Now().Format("2006-01-02")
	if s.dayMark != today {
		s.dayMark = today
		s.dailyTradeCount = make(map[string]int)
	}
}

func (s *Scheduler) dailyCount(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyTradeCount[symbol]
}

func (s *Scheduler) bumpDailyCount(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyTradeCount[symbol]++
}
