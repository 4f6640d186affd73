// Command arb-core runs the cross-venue arbitrage engine: it loads the
// runtime environment and JSON config files, wires the venue adapters,
// strategy pipeline, executor, balance/bridge gates, and trade log, then
// runs the scheduler until signalled to stop. Construction proceeds
// bottom-up: load env/config, wire components, start goroutines, wait on
// signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"arb-core/internal/balance"
	"arb-core/internal/bridge"
	"arb-core/internal/credential"
	"arb-core/internal/domain"
	"arb-core/internal/events"
	"arb-core/internal/executor"
	"arb-core/internal/inventory"
	"arb-core/internal/money"
	"arb-core/internal/monitor"
	"arb-core/internal/rate"
	"arb-core/internal/risk"
	"arb-core/internal/scheduler"
	"arb-core/internal/state"
	"arb-core/internal/strategy"
	"arb-core/internal/tradelog"
	"arb-core/internal/venue/galachain"
	"arb-core/internal/venue/httpx"
	"arb-core/internal/venue/jupiter"
	"arb-core/pkg/config"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if err := run(log); err != nil {
		log.Error().Err(err).Msg("arb-core exited with error")
		os.Exit(1)
	}
}

func run(log zerolog.Logger) error {
	env, err := config.LoadEnv()
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	tradingFile, err := config.LoadTradingFile(env.TradingConfigPath)
	if err != nil {
		return fmt.Errorf("load trading config: %w", err)
	}
	tokensFile, err := config.LoadTokensFile(env.TokensFilePath)
	if err != nil {
		return fmt.Errorf("load tokens config: %w", err)
	}
	strategiesFile, err := config.LoadStrategiesFile(env.StrategiesPath)
	if err != nil {
		return fmt.Errorf("load strategies config: %w", err)
	}

	cred, err := credential.New()
	if err != nil {
		return fmt.Errorf("init credential handle: %w", err)
	}
	if env.PrimarySignerKeyPath != "" {
		if err := cred.LoadFromFile(string(domain.VenuePrimary), env.PrimarySignerKeyPath); err != nil {
			return fmt.Errorf("load primary signer key: %w", err)
		}
	}
	if env.SecondarySignerKeyPath != "" {
		if err := cred.LoadFromFile(string(domain.VenueSecondary), env.SecondarySignerKeyPath); err != nil {
			return fmt.Errorf("load secondary signer key: %w", err)
		}
	}

	store := state.New(env.StateSnapshotPath, nil)
	if err := store.Load(); err != nil {
		return fmt.Errorf("load state snapshot: %w", err)
	}

	bus := events.NewBus()

	pools := galachain.NewPoolState(nil)
	primary := galachain.New(pools, env.PrimaryEndpoint, cred, log.With().Str("venue", "primary").Logger())

	mints := make(jupiter.Mints, len(tokensFile.QuoteTokens)+len(tokensFile.Tokens))
	for sym, qt := range tokensFile.QuoteTokens {
		mints[sym] = qt.SecondaryMint
	}
	for sym, t := range tokensFile.Tokens {
		mints[sym] = t.SecondaryMint
	}
	secondary := jupiter.New(mints, env.SecondaryEndpoint, cred, log.With().Str("venue", "secondary").Logger())

	oracleClient := httpx.New(env.OracleEndpoint)
	oracle := rate.NewCachedOracle(30*time.Second, func(ctx context.Context, symbol string) (money.Amount, error) {
		return fetchUsdPrice(ctx, oracleClient, symbol)
	})
	converter := rate.New(tradingFile.Scheduler.EffectiveRefSymbol(), oracle, nil)

	riskMgr := risk.NewManager(risk.Config{
		MinEdgeBps:          tradingFile.Trading.MinEdgeBps,
		ReverseMinEdgeBps:   tradingFile.Trading.ReverseMinEdgeBps(),
		RiskBufferBps:       tradingFile.Trading.RiskBufferBps,
		MaxPriceImpactBps:   tradingFile.Trading.MaxPriceImpactBps,
		CooldownMinutes:     tradingFile.Trading.CooldownMinutes,
		MaxDailyTrades:      tradingFile.Trading.MaxDailyTrades,
		BridgeCostUsd:       tradingFile.AutoBridging.BridgeCostUsd,
		TradesPerBridge:     tradingFile.AutoBridging.EffectiveTradesPerBridge(),
		FallbackRefUsdPrice: tradingFile.Trading.FallbackRefUsdPrice,
	})

	strategyReg := strategy.NewRegistry(strategiesFile)
	// A pacing interval of 0 selects the evaluator's default gap between strategies.
	evaluator := strategy.NewEvaluator(strategyReg, primary, secondary, converter, riskMgr, store,
		0, log.With().Str("component", "evaluator").Logger())

	exec := executor.New(primary, secondary, primary, secondary, bus,
		executor.DefaultSlippageParams(tradingFile.Trading.MaxSlippageBps), log.With().Str("component", "executor").Logger())

	symbols := make([]string, 0, len(tokensFile.Tokens)+1)
	for sym := range tokensFile.Tokens {
		symbols = append(symbols, sym)
	}
	symbols = append(symbols, tradingFile.Scheduler.EffectiveRefSymbol())

	refresher := inventory.New(primary, secondary, store, symbols, env.InventoryRefreshEvery, log.With().Str("component", "inventory").Logger())

	balancer := balance.NewChecker(balance.Config{
		MinNativePrimary:            tradingFile.BalanceChecking.MinNativePrimary,
		MinNativeSecondary:          tradingFile.BalanceChecking.MinNativeSecondary,
		BalanceCheckCooldownSeconds: tradingFile.BalanceChecking.BalanceCheckCooldownSeconds,
		SkipTokens:                  tradingFile.BalanceChecking.SkipTokens,
	}, store, refresher.RefreshNow, log.With().Str("component", "balance").Logger())

	transferer := bridge.NewHTTPTransferer(env.PrimaryEndpoint, cred)
	bridger := bridge.NewController(bridge.Config{
		Enabled:                   tradingFile.AutoBridging.Enabled,
		ImbalanceThresholdPercent: tradingFile.AutoBridging.ImbalanceThresholdPercent,
		TargetSplitPercent:        tradingFile.AutoBridging.TargetSplitPercent,
		MinRebalanceAmount:        tradingFile.AutoBridging.MinRebalanceAmount,
		CheckIntervalMinutes:      tradingFile.AutoBridging.CheckIntervalMinutes,
		CooldownMinutes:           tradingFile.AutoBridging.CooldownMinutes,
		MaxBridgesPerDay:          tradingFile.AutoBridging.MaxBridgesPerDay,
		EnabledTokens:             tradingFile.AutoBridging.EnabledTokens,
		SkipTokens:                tradingFile.AutoBridging.SkipTokens,
		MaxRetries:                tradingFile.AutoBridging.EffectiveMaxRetries(),
	}, store, transferer, bus, log.With().Str("component", "bridge").Logger())

	tradeLog, err := tradelog.Open(env.TradeLogDBPath, log.With().Str("component", "tradelog").Logger())
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	defer tradeLog.Close()

	tokens := make([]domain.TokenDescriptor, 0, len(tokensFile.Tokens))
	for _, t := range tokensFile.Tokens {
		tokens = append(tokens, t)
	}

	mode := domain.ModeDryRun
	if env.Mode == config.ModeLive {
		mode = domain.ModeLive
	}

	sched := scheduler.New(scheduler.Config{
		Mode:                       mode,
		TickInterval:               env.TickInterval,
		RefSymbol:                  tradingFile.Scheduler.EffectiveRefSymbol(),
		MaxDailyTrades:             tradingFile.Trading.MaxDailyTrades,
		BreakerConsecutiveFailures: tradingFile.Scheduler.EffectiveBreakerConsecutiveFailures(),
		BreakerOpenDuration:        time.Duration(tradingFile.Scheduler.EffectiveBreakerOpenSeconds()) * time.Second,
		BreakerHalfOpenMaxRequests: tradingFile.Scheduler.EffectiveBreakerHalfOpenMaxRequests(),
	}, tokens, evaluator, exec, balancer, bridger, store, tradeLog, bus, log.With().Str("component", "scheduler").Logger())
	sched.SetPaused(env.Paused)

	mon := monitor.New(bus, stderrSink{})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mon.Start(ctx)
	go refresher.Run(ctx)
	sched.Run(ctx)

	return nil
}

func fetchUsdPrice(ctx context.Context, client *httpx.Client, symbol string) (money.Amount, error) {
	var resp struct {
		PriceUsd string `json:"priceUsd"`
	}
	if _, err := client.GetJSON(ctx, "/v1/price?symbol="+symbol, nil, &resp); err != nil {
		return money.Zero, err
	}
	return money.NewFromString(resp.PriceUsd)
}

type stderrSink struct{}

func (stderrSink) Send(message string) error {
	_, err := os.Stderr.WriteString(message + "\n")
	return err
}
