// Command analyze reports aggregate statistics over a trade log database
// without starting the trading engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"arb-core/internal/tradelog"
)

func main() {
	dbPath := flag.String("db", "data/trades.db", "path to the trade log sqlite database")
	flag.Parse()

	if err := run(*dbPath); err != nil {
		fmt.Fprintln(os.Stderr, "analyze:", err)
		os.Exit(1)
	}
}

func run(dbPath string) error {
	analyzer, closeFn, err := tradelog.OpenReadOnly(dbPath)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := context.Background()

	summary, err := analyzer.Totals(ctx)
	if err != nil {
		return fmt.Errorf("compute totals: %w", err)
	}

	fmt.Printf("Total trades:      %d\n", summary.TotalTrades)
	fmt.Printf("Successful:        %d\n", summary.SuccessfulTrades)
	fmt.Printf("Partial:           %d\n", summary.PartialTrades)
	fmt.Printf("Failed:            %d\n", summary.FailedTrades)
	fmt.Printf("Success rate:      %.2f%%\n", summary.SuccessRate()*100)
	fmt.Printf("Net edge (ref):    %s\n", summary.NetEdgeSum.String())

	buckets, err := analyzer.ByTokenDirectionHour(ctx)
	if err != nil {
		return fmt.Errorf("compute hourly buckets: %w", err)
	}

	fmt.Println()
	fmt.Println("Token   Direction  Hour (UTC)       Trades  Net edge")
	for _, b := range buckets {
		fmt.Printf("%-7s %-10s %-16s %-7d %s\n", b.Token, b.Direction, b.HourBucket, b.Trades, b.NetEdgeSum.String())
	}
	return nil
}
