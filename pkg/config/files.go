package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"arb-core/internal/domain"
	"arb-core/internal/money"
)

var validate = validator.New()

// TradingConfig is the `trading` section of the engine's JSON config file.
type TradingConfig struct {
	MinEdgeBps                   int    `json:"minEdgeBps" validate:"gte=0"`
	ReverseArbitrageMinEdgeBps   *int   `json:"reverseArbitrageMinEdgeBps,omitempty"`
	MaxSlippageBps               int    `json:"maxSlippageBps" validate:"gte=0"`
	RiskBufferBps                int    `json:"riskBufferBps" validate:"gte=0"`
	MaxPriceImpactBps            int    `json:"maxPriceImpactBps" validate:"gte=0"`
	CooldownMinutes              int    `json:"cooldownMinutes" validate:"gte=0"`
	MaxDailyTrades               int    `json:"maxDailyTrades" validate:"gte=0"`
	EnableReverseArbitrage       bool   `json:"enableReverseArbitrage,omitempty"`
	ArbitrageDirection           string `json:"arbitrageDirection,omitempty" validate:"omitempty,oneof=forward reverse best"`
	DynamicSlippageMaxMultiplier float64 `json:"dynamicSlippageMaxMultiplier,omitempty"`
	DynamicSlippageEdgeRatio     float64 `json:"dynamicSlippageEdgeRatio,omitempty"`
	FallbackRefUsdPrice          *money.Amount `json:"fallbackRefUsdPrice,omitempty"`
}

// ReverseMinEdgeBps returns the reverse-direction threshold, falling back to
// MinEdgeBps when unset.
func (c TradingConfig) ReverseMinEdgeBps() int {
	if c.ReverseArbitrageMinEdgeBps != nil {
		return *c.ReverseArbitrageMinEdgeBps
	}
	return c.MinEdgeBps
}

func (c TradingConfig) SlippageMultiplier() float64 {
	if c.DynamicSlippageMaxMultiplier > 0 {
		return c.DynamicSlippageMaxMultiplier
	}
	return 2.0
}

func (c TradingConfig) SlippageEdgeRatio() float64 {
	if c.DynamicSlippageEdgeRatio > 0 {
		return c.DynamicSlippageEdgeRatio
	}
	return 0.75
}

// AutoBridgingConfig is the `autoBridging` section.
type AutoBridgingConfig struct {
	Enabled                    bool     `json:"enabled"`
	ImbalanceThresholdPercent  float64  `json:"imbalanceThresholdPercent" validate:"gte=0,lte=1"`
	TargetSplitPercent         float64  `json:"targetSplitPercent" validate:"gte=0,lte=1"`
	MinRebalanceAmount         money.Amount `json:"minRebalanceAmount"`
	CheckIntervalMinutes       int      `json:"checkIntervalMinutes" validate:"gte=1"`
	CooldownMinutes            int      `json:"cooldownMinutes" validate:"gte=0"`
	MaxBridgesPerDay           int      `json:"maxBridgesPerDay" validate:"gte=0"`
	EnabledTokens              []string `json:"enabledTokens,omitempty"`
	SkipTokens                 []string `json:"skipTokens,omitempty"`
	BridgeCostUsd              float64  `json:"bridgeCostUsd,omitempty"`
	TradesPerBridge            int      `json:"tradesPerBridge,omitempty"`
	MaxRetries                 int      `json:"maxRetries,omitempty"`
}

func (c AutoBridgingConfig) EffectiveTradesPerBridge() int {
	if c.TradesPerBridge > 0 {
		return c.TradesPerBridge
	}
	return 100
}

func (c AutoBridgingConfig) EffectiveMaxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 3
}

// BalanceCheckingConfig is the `balanceChecking` section.
type BalanceCheckingConfig struct {
	MinNativePrimary            money.Amount `json:"minNativePrimary"`
	MinNativeSecondary          money.Amount `json:"minNativeSecondary"`
	BalanceCheckCooldownSeconds int          `json:"balanceCheckCooldownSeconds" validate:"gte=0"`
	SkipTokens                  []string     `json:"skipTokens,omitempty"`
}

// SchedulerConfig is the `scheduler` section: tick cadence and the
// circuit-breaker thresholds that pause trading after a run of execution
// failures.
type SchedulerConfig struct {
	TickIntervalSeconds        int    `json:"tickIntervalSeconds" validate:"gte=1"`
	RefSymbol                  string `json:"refSymbol"`
	BreakerConsecutiveFailures uint32 `json:"breakerConsecutiveFailures,omitempty"`
	BreakerOpenSeconds         int    `json:"breakerOpenSeconds,omitempty"`
	BreakerHalfOpenMaxRequests uint32 `json:"breakerHalfOpenMaxRequests,omitempty"`
}

func (c SchedulerConfig) EffectiveTickInterval() int {
	if c.TickIntervalSeconds > 0 {
		return c.TickIntervalSeconds
	}
	return 15
}

func (c SchedulerConfig) EffectiveRefSymbol() string {
	if c.RefSymbol != "" {
		return c.RefSymbol
	}
	return "GALA"
}

func (c SchedulerConfig) EffectiveBreakerConsecutiveFailures() uint32 {
	if c.BreakerConsecutiveFailures > 0 {
		return c.BreakerConsecutiveFailures
	}
	return 3
}

func (c SchedulerConfig) EffectiveBreakerOpenSeconds() int {
	if c.BreakerOpenSeconds > 0 {
		return c.BreakerOpenSeconds
	}
	return 120
}

func (c SchedulerConfig) EffectiveBreakerHalfOpenMaxRequests() uint32 {
	if c.BreakerHalfOpenMaxRequests > 0 {
		return c.BreakerHalfOpenMaxRequests
	}
	return 1
}

// TradingFile is the root JSON document holding all four sections; unknown
// top-level keys are ignored rather than rejected.
type TradingFile struct {
	Trading          TradingConfig         `json:"trading" validate:"required"`
	AutoBridging     AutoBridgingConfig    `json:"autoBridging"`
	BalanceChecking  BalanceCheckingConfig `json:"balanceChecking"`
	Scheduler        SchedulerConfig       `json:"scheduler"`
}

// LoadTradingFile reads and validates the trading config document.
func LoadTradingFile(path string) (*TradingFile, error) {
	var f TradingFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("validate trading config %s: %w", path, err)
	}
	return &f, nil
}

// QuoteTokenDescriptor describes a quote-currency token (one that is not
// itself an arbitrage target but is used to price one).
type QuoteTokenDescriptor struct {
	Decimals      int32  `json:"decimals"`
	PrimaryMint   string `json:"primaryMint"`
	SecondaryMint string `json:"secondaryMint"`
}

// TokensFile is the tokens configuration document.
type TokensFile struct {
	Tokens      map[string]domain.TokenDescriptor `json:"tokens"`
	QuoteTokens map[string]QuoteTokenDescriptor    `json:"quoteTokens"`
}

// LoadTokensFile reads the tokens document.
func LoadTokensFile(path string) (*TokensFile, error) {
	var f TokensFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	for sym, t := range f.Tokens {
		t.Symbol = sym
		f.Tokens[sym] = t
	}
	return &f, nil
}

// StrategiesFile maps a strategy id to its descriptor.
type StrategiesFile map[string]domain.Strategy

// LoadStrategiesFile reads the strategies document.
func LoadStrategiesFile(path string) (StrategiesFile, error) {
	var f StrategiesFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	for id, s := range f {
		s.ID = id
		f[id] = s
	}
	return f, nil
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
