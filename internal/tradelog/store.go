// Package tradelog is the durable, append-only record of every executed
// (and dry-run) trade. Grounded in pkg/db's sqlite-over-modernc.org/sqlite
// open/migrate pattern, adapted from a generic multi-table OMS schema to one
// purpose-built table plus the aggregate queries the analyzer needs. Each
// Record is one synchronous insert; nothing is buffered.
package tradelog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"arb-core/internal/domain"
	"arb-core/internal/money"
)

const schema = `
CREATE TABLE IF NOT EXISTS trade_log (
	timestamp_iso          TEXT PRIMARY KEY,
	mode                    TEXT NOT NULL,
	token                   TEXT NOT NULL,
	trade_size              TEXT NOT NULL,
	direction               TEXT NOT NULL,
	strategy_id             TEXT NOT NULL,
	success                 INTEGER NOT NULL,
	partial_success         INTEGER NOT NULL,
	expected_gc_proceeds    TEXT NOT NULL,
	expected_sol_cost       TEXT NOT NULL,
	expected_net_edge       TEXT NOT NULL,
	expected_net_edge_bps   INTEGER NOT NULL,
	primary_impact_bps      INTEGER NOT NULL,
	secondary_impact_bps    INTEGER NOT NULL,
	actual_gc_proceeds      TEXT,
	actual_sol_cost         TEXT,
	actual_net_edge         TEXT,
	primary_txid            TEXT,
	secondary_txid          TEXT,
	primary_error           TEXT,
	secondary_error         TEXT,
	execution_duration_ms   INTEGER NOT NULL DEFAULT 0,
	recorded_at             DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trade_log_token ON trade_log(token);
CREATE INDEX IF NOT EXISTS idx_trade_log_direction ON trade_log(direction);
`

// Store is the sole writer of the trade log. It satisfies
// internal/scheduler.TradeRecorder.
type Store struct {
	db  *sql.DB
	log zerolog.Logger

	mu      sync.Mutex
	lastTS  string // last timestampIso used, for collision suffixing
	lastSeq int
}

// Open creates (if absent) and migrates the sqlite database at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("tradelog: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("tradelog: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tradelog: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tradelog: apply schema: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends entry to the log. A collision on timestampIso (two trades
// settling within the same nanosecond tick, or a clock that didn't advance)
// is resolved by appending a monotonic numeric suffix tracked in-process;
// the caller-supplied TimestampIso is never silently overwritten.
func (s *Store) Record(ctx context.Context, entry domain.TradeLogEntry) error {
	s.mu.Lock()
	key := s.dedupeKey(entry.TimestampIso)
	s.mu.Unlock()

	var actualGc, actualSol, actualNet sql.NullString
	if entry.Actual != nil {
		actualGc = sql.NullString{String: entry.Actual.GcProceeds.String(), Valid: true}
		actualSol = sql.NullString{String: entry.Actual.SolCost.String(), Valid: true}
		actualNet = sql.NullString{String: entry.Actual.NetEdge.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_log (
			timestamp_iso, mode, token, trade_size, direction, strategy_id,
			success, partial_success,
			expected_gc_proceeds, expected_sol_cost, expected_net_edge, expected_net_edge_bps,
			primary_impact_bps, secondary_impact_bps,
			actual_gc_proceeds, actual_sol_cost, actual_net_edge,
			primary_txid, secondary_txid, primary_error, secondary_error,
			execution_duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		key, string(entry.Mode), entry.Token, entry.TradeSize.String(), string(entry.Direction), entry.StrategyID,
		boolToInt(entry.Success), boolToInt(entry.PartialSuccess),
		entry.Expected.GcProceeds.String(), entry.Expected.SolCost.String(), entry.Expected.NetEdge.String(), entry.Expected.NetEdgeBps,
		entry.Expected.PrimaryImpactBps, entry.Expected.SecondaryImpactBps,
		actualGc, actualSol, actualNet,
		nullIfEmpty(entry.PrimaryTxID), nullIfEmpty(entry.SecondaryTxID), nullIfEmpty(entry.PrimaryError), nullIfEmpty(entry.SecondaryError),
		entry.ExecutionDurationMs,
	)
	if err != nil {
		return fmt.Errorf("tradelog: insert: %w", err)
	}
	s.log.Debug().Str("token", entry.Token).Str("timestampIso", key).Msg("trade log entry recorded")
	return nil
}

// dedupeKey returns ts unchanged the first time it's seen, and ts with a
// "#N" suffix on every subsequent call with the same ts.
func (s *Store) dedupeKey(ts string) string {
	if ts != s.lastTS {
		s.lastTS = ts
		s.lastSeq = 0
		return ts
	}
	s.lastSeq++
	return fmt.Sprintf("%s#%d", ts, s.lastSeq)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Summary is the aggregate produced by Analyzer.Totals.
type Summary struct {
	TotalTrades      int
	SuccessfulTrades int
	PartialTrades    int
	FailedTrades     int
	NetEdgeSum       money.Amount
}

// SuccessRate returns the fraction of attempts that fully succeeded, 0 if
// there have been no trades.
func (s Summary) SuccessRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.SuccessfulTrades) / float64(s.TotalTrades)
}

// TokenDirectionBucket is one row of the by-token/direction/hour rollup.
type TokenDirectionBucket struct {
	Token      string
	Direction  string
	HourBucket string // "2026-07-31T14" (UTC)
	Trades     int
	NetEdgeSum money.Amount
}

// Analyzer runs read-only aggregate queries over the trade log, usable
// independently of a running engine (see cmd/analyze).
type Analyzer struct {
	db *sql.DB
}

// NewAnalyzer wraps an existing Store's handle for queries, or a handle
// opened read-only via OpenReadOnly.
func NewAnalyzer(s *Store) *Analyzer { return &Analyzer{db: s.db} }

// OpenReadOnly opens the trade log database for analysis only, without
// creating it if absent.
func OpenReadOnly(path string) (*Analyzer, func() error, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, nil, fmt.Errorf("tradelog: open read-only: %w", err)
	}
	return &Analyzer{db: db}, db.Close, nil
}

// Totals computes the overall success-rate and net-edge summary across the
// whole log.
func (a *Analyzer) Totals(ctx context.Context) (Summary, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN partial_success = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN success = 0 AND partial_success = 0 THEN 1 ELSE 0 END)
		FROM trade_log
	`)

	var sum Summary
	var successful, partial, failed sql.NullInt64
	if err := row.Scan(&sum.TotalTrades, &successful, &partial, &failed); err != nil {
		return Summary{}, fmt.Errorf("tradelog: totals: %w", err)
	}
	sum.SuccessfulTrades = int(successful.Int64)
	sum.PartialTrades = int(partial.Int64)
	sum.FailedTrades = int(failed.Int64)

	netEdge, err := a.runningNetEdge(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum.NetEdgeSum = netEdge
	return sum, nil
}

// runningNetEdge sums actual net edge where available, falling back to the
// expected net edge for dry runs (which never populate actual_net_edge).
func (a *Analyzer) runningNetEdge(ctx context.Context) (money.Amount, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT COALESCE(actual_net_edge, expected_net_edge) FROM trade_log
	`)
	if err != nil {
		return money.Zero, fmt.Errorf("tradelog: running net edge: %w", err)
	}
	defer rows.Close()

	total := money.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return money.Zero, fmt.Errorf("tradelog: scan net edge: %w", err)
		}
		amt, err := money.NewFromString(raw)
		if err != nil {
			continue
		}
		total = total.Add(amt)
	}
	return total, rows.Err()
}

// ByTokenDirectionHour buckets trade counts and net edge by token,
// direction, and UTC hour.
func (a *Analyzer) ByTokenDirectionHour(ctx context.Context) ([]TokenDirectionBucket, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT token, direction, substr(timestamp_iso, 1, 13) AS hour_bucket,
			COUNT(*), GROUP_CONCAT(COALESCE(actual_net_edge, expected_net_edge))
		FROM trade_log
		GROUP BY token, direction, hour_bucket
		ORDER BY hour_bucket
	`)
	if err != nil {
		return nil, fmt.Errorf("tradelog: by token/direction/hour: %w", err)
	}
	defer rows.Close()

	var buckets []TokenDirectionBucket
	for rows.Next() {
		var b TokenDirectionBucket
		var concatenated string
		if err := rows.Scan(&b.Token, &b.Direction, &b.HourBucket, &b.Trades, &concatenated); err != nil {
			return nil, fmt.Errorf("tradelog: scan bucket: %w", err)
		}
		b.NetEdgeSum = sumConcatenatedAmounts(concatenated)
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func sumConcatenatedAmounts(csv string) money.Amount {
	total := money.Zero
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				if amt, err := money.NewFromString(csv[start:i]); err == nil {
					total = total.Add(amt)
				}
			}
			start = i + 1
		}
	}
	return total
}
