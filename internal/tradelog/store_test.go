package tradelog

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"arb-core/internal/domain"
	"arb-core/internal/money"
)

func newTestStore(t *testing.T) *Store {
	s, err := Open(t.TempDir()+"/trades.db", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEntry(ts, token string, success bool, netEdge int64) domain.TradeLogEntry {
	return domain.TradeLogEntry{
		TimestampIso: ts,
		Mode:         domain.ModeLive,
		Token:        token,
		TradeSize:    money.New(1000),
		Direction:    domain.DirectionForward,
		StrategyID:   "fwd",
		Success:      success,
		Expected: domain.ExpectedOutcome{
			GcProceeds: money.New(10), SolCost: money.New(5), NetEdge: money.New(netEdge), NetEdgeBps: 120,
		},
	}
}

func TestRecord_AndTotals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, sampleEntry("2026-07-31T10:00:00.000000001Z", "GALA", true, 5)))
	require.NoError(t, store.Record(ctx, sampleEntry("2026-07-31T10:01:00.000000001Z", "GALA", false, -2)))

	analyzer := NewAnalyzer(store)
	summary, err := analyzer.Totals(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalTrades)
	require.Equal(t, 1, summary.SuccessfulTrades)
	require.Equal(t, 1, summary.FailedTrades)
	require.True(t, summary.NetEdgeSum.Cmp(money.New(3)) == 0)
}

func TestRecord_CollisionAppendsMonotonicSuffix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := "2026-07-31T10:00:00.000000001Z"
	require.NoError(t, store.Record(ctx, sampleEntry(ts, "GALA", true, 1)))
	require.NoError(t, store.Record(ctx, sampleEntry(ts, "GALA", true, 1)))
	require.NoError(t, store.Record(ctx, sampleEntry(ts, "GALA", true, 1)))

	analyzer := NewAnalyzer(store)
	summary, err := analyzer.Totals(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, summary.TotalTrades, "identical timestamps must not collide and silently drop rows")
}

func TestByTokenDirectionHour_GroupsAndSums(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, sampleEntry("2026-07-31T10:00:00.000000001Z", "GALA", true, 5)))
	require.NoError(t, store.Record(ctx, sampleEntry("2026-07-31T10:30:00.000000001Z", "GALA", true, 7)))
	require.NoError(t, store.Record(ctx, sampleEntry("2026-07-31T11:00:00.000000001Z", "GALA", true, 2)))

	analyzer := NewAnalyzer(store)
	buckets, err := analyzer.ByTokenDirectionHour(ctx)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	var tenHour TokenDirectionBucket
	for _, b := range buckets {
		if b.HourBucket == "2026-07-31T10" {
			tenHour = b
		}
	}
	require.Equal(t, 2, tenHour.Trades)
	require.True(t, tenHour.NetEdgeSum.Cmp(money.New(12)) == 0)
}

func TestRecord_DryRunOmitsActualButCountsTowardNetEdge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := sampleEntry("2026-07-31T10:00:00.000000001Z", "GALA", true, 9)
	entry.Mode = domain.ModeDryRun
	require.NoError(t, store.Record(ctx, entry))

	analyzer := NewAnalyzer(store)
	summary, err := analyzer.Totals(ctx)
	require.NoError(t, err)
	require.True(t, summary.NetEdgeSum.Cmp(money.New(9)) == 0)
}
