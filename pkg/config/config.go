// Package config loads the engine's runtime environment (mode, intervals,
// credentials, endpoints) and its JSON configuration files (trading,
// auto-bridging, balance-checking, tokens, strategies).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// RunMode is the engine's execution mode.
type RunMode string

const (
	ModeLive   RunMode = "live"
	ModeDryRun RunMode = "dryRun"
)

// Env holds the process environment consumed by the core: run mode, pause
// flag, tick/refresh intervals, credentials, and venue endpoints.
type Env struct {
	Mode                  RunMode
	Paused                bool
	TickInterval          time.Duration
	InventoryRefreshEvery time.Duration

	PrimaryEndpoint   string
	SecondaryEndpoint string
	OracleEndpoint    string
	AggregatorAPIKey  string

	PrimarySignerKeyPath   string
	SecondarySignerKeyPath string

	StateSnapshotPath string
	TradeLogDBPath    string
	TokensFilePath    string
	StrategiesPath    string
	TradingConfigPath string
}

// LoadEnv reads environment variables (optionally via .env, ignoring its
// absence so the process still starts without one).
func LoadEnv() (*Env, error) {
	_ = godotenv.Load()

	mode := RunMode(getEnv("RUN_MODE", string(ModeDryRun)))

	return &Env{
		Mode:                  mode,
		Paused:                getEnv("PAUSED", "false") == "true",
		TickInterval:          getEnvDuration("TICK_INTERVAL", 15*time.Second),
		InventoryRefreshEvery: getEnvDuration("INVENTORY_REFRESH_INTERVAL", 5*time.Minute),
		PrimaryEndpoint:       getEnv("PRIMARY_ENDPOINT", ""),
		SecondaryEndpoint:     getEnv("SECONDARY_ENDPOINT", ""),
		OracleEndpoint:        getEnv("ORACLE_ENDPOINT", ""),
		AggregatorAPIKey:      os.Getenv("AGGREGATOR_API_KEY"),
		PrimarySignerKeyPath:   os.Getenv("PRIMARY_SIGNER_KEY_PATH"),
		SecondarySignerKeyPath: os.Getenv("SECONDARY_SIGNER_KEY_PATH"),
		StateSnapshotPath:     getEnv("STATE_SNAPSHOT_PATH", "./data/state.json"),
		TradeLogDBPath:        getEnv("TRADE_LOG_DB_PATH", "./data/tradelog.db"),
		TokensFilePath:        getEnv("TOKENS_FILE", "./config/tokens.json"),
		StrategiesPath:        getEnv("STRATEGIES_FILE", "./config/strategies.json"),
		TradingConfigPath:     getEnv("TRADING_CONFIG_FILE", "./config/trading.json"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
