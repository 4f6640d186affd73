// Package state is the engine's single-writer, multi-reader state store: a
// JSON snapshot of inventory, cooldowns, trade log, price cache, and the
// bridge ledger, durably replaced with the write-to-temp-then-rename
// technique: write the full snapshot to a temp file, fsync, then rename.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"arb-core/internal/domain"
	"arb-core/internal/money"
)

// Snapshot is the store's full persisted document.
type Snapshot struct {
	SchemaVersion int                              `json:"schemaVersion"`
	Inventory     domain.InventorySnapshot          `json:"inventory"`
	Cooldowns     map[string]domain.CooldownEntry   `json:"cooldowns"`
	PriceCache    map[string]domain.PriceCacheEntry `json:"priceCache"`
	Bridges       []domain.BridgeRecord             `json:"bridges"`
	TradeCount    int64                             `json:"tradeCount"`
}

func defaultSnapshot() *Snapshot {
	return &Snapshot{
		SchemaVersion: 1,
		Inventory: domain.InventorySnapshot{
			Primary:   make(map[string]domain.TokenBalance),
			Secondary: make(map[string]domain.TokenBalance),
		},
		Cooldowns:  make(map[string]domain.CooldownEntry),
		PriceCache: make(map[string]domain.PriceCacheEntry),
	}
}

// Store is the single writer for inventory/cooldown/trade-log/bridge state.
// All mutations flow through applyUpdate, serialised by mu.
type Store struct {
	path string
	mu   sync.Mutex // serialises writers

	snapMu sync.RWMutex // guards the swap of the current snapshot pointer
	snap   *Snapshot

	onUpdate func(*Snapshot)
}

// New constructs a Store bound to path. Call Load before use.
func New(path string, onUpdate func(*Snapshot)) *Store {
	return &Store{path: path, onUpdate: onUpdate}
}

// Load reads the snapshot file, creating a default one if absent. A
// corrupt file is a System-kind error: the store fails closed rather than
// starting from a partially-parsed document.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.snapMu.Lock()
			s.snap = defaultSnapshot()
			s.snapMu.Unlock()
			return nil
		}
		return fmt.Errorf("state: read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("state: corrupt snapshot, refusing to start: %w", err)
	}
	if snap.Cooldowns == nil {
		snap.Cooldowns = make(map[string]domain.CooldownEntry)
	}
	if snap.PriceCache == nil {
		snap.PriceCache = make(map[string]domain.PriceCacheEntry)
	}
	if snap.Inventory.Primary == nil {
		snap.Inventory.Primary = make(map[string]domain.TokenBalance)
	}
	if snap.Inventory.Secondary == nil {
		snap.Inventory.Secondary = make(map[string]domain.TokenBalance)
	}
	if snap.SchemaVersion == 0 {
		snap.SchemaVersion = 1
	}

	s.snapMu.Lock()
	s.snap = &snap
	s.snapMu.Unlock()
	return nil
}

// GetState returns a read-only view of the current snapshot. Readers never
// observe a torn struct: the pointer swap in applyUpdate is atomic under
// snapMu.
func (s *Store) GetState() *Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// clone deep-copies a Snapshot so applyUpdate's mutator never touches the
// version readers can still observe.
func clone(snap *Snapshot) *Snapshot {
	out := *snap
	out.Cooldowns = make(map[string]domain.CooldownEntry, len(snap.Cooldowns))
	for k, v := range snap.Cooldowns {
		out.Cooldowns[k] = v
	}
	out.PriceCache = make(map[string]domain.PriceCacheEntry, len(snap.PriceCache))
	for k, v := range snap.PriceCache {
		out.PriceCache[k] = v
	}
	out.Inventory.Primary = make(map[string]domain.TokenBalance, len(snap.Inventory.Primary))
	for k, v := range snap.Inventory.Primary {
		out.Inventory.Primary[k] = v
	}
	out.Inventory.Secondary = make(map[string]domain.TokenBalance, len(snap.Inventory.Secondary))
	for k, v := range snap.Inventory.Secondary {
		out.Inventory.Secondary[k] = v
	}
	out.Bridges = append([]domain.BridgeRecord(nil), snap.Bridges...)
	return &out
}

// applyUpdate applies fn to a mutable clone of the current snapshot, then
// persists it via write-to-temp + atomic rename. On success the in-memory
// pointer is swapped and onUpdate fires. A write failure leaves the
// previous snapshot intact.
func (s *Store) applyUpdate(fn func(*Snapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.GetState()
	next := clone(current)
	fn(next)

	if err := s.persist(next); err != nil {
		return fmt.Errorf("state: persist: %w", err)
	}

	s.snapMu.Lock()
	s.snap = next
	s.snapMu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(next)
	}
	return nil
}

// persist writes next to a temp file in the same directory, fsyncs it, and
// renames it over the live path — the same technique the order
// write-ahead log uses for WAL compaction, applied here to full-snapshot
// replacement instead of log-tail rewriting.
func (s *Store) persist(next *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tempPath := s.path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(next); err != nil {
		f.Close()
		os.Remove(tempPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, s.path)
}

// IsTokenInCooldown reports whether symbol has an unexpired cooldown entry.
func (s *Store) IsTokenInCooldown(symbol string) bool {
	snap := s.GetState()
	entry, ok := snap.Cooldowns[symbol]
	if !ok {
		return false
	}
	return entry.InCooldown(time.Now())
}

// SetCooldown records a cooldown entry for symbol ending in d from now.
func (s *Store) SetCooldown(symbol string, d time.Duration, reason string) error {
	return s.applyUpdate(func(snap *Snapshot) {
		snap.Cooldowns[symbol] = domain.CooldownEntry{
			Symbol:        symbol,
			EndsAtEpochMs: time.Now().Add(d).UnixMilli(),
			Reason:        reason,
		}
	})
}

// ClearCooldown removes symbol's cooldown entry explicitly, independent of
// its expiry.
func (s *Store) ClearCooldown(symbol string) error {
	return s.applyUpdate(func(snap *Snapshot) {
		delete(snap.Cooldowns, symbol)
	})
}

// UpdateChainInventory overwrites one venue's balance map.
func (s *Store) UpdateChainInventory(venue domain.Venue, balances map[string]domain.TokenBalance, native *domain.TokenBalance) error {
	return s.applyUpdate(func(snap *Snapshot) {
		switch venue {
		case domain.VenuePrimary:
			snap.Inventory.Primary = balances
			if native != nil {
				snap.Inventory.NativePrimary = native.Balance
			}
		case domain.VenueSecondary:
			snap.Inventory.Secondary = balances
			if native != nil {
				snap.Inventory.NativeSecondary = native.Balance
			}
		}
		snap.Inventory.LastUpdated = time.Now()
		snap.Inventory.Version++
	})
}

// UpdatePriceCache upserts a price cache entry.
func (s *Store) UpdatePriceCache(entry domain.PriceCacheEntry) error {
	return s.applyUpdate(func(snap *Snapshot) {
		snap.PriceCache[entry.Symbol] = entry
	})
}

// AppendBridge appends a new bridge record.
func (s *Store) AppendBridge(record domain.BridgeRecord) error {
	return s.applyUpdate(func(snap *Snapshot) {
		snap.Bridges = append(snap.Bridges, record)
	})
}

// UpdateBridgeStatus updates the status of an existing bridge record by id.
func (s *Store) UpdateBridgeStatus(id string, status domain.BridgeStatus, lastPollAt time.Time) error {
	return s.applyUpdate(func(snap *Snapshot) {
		for i := range snap.Bridges {
			if snap.Bridges[i].ID == id {
				snap.Bridges[i].Status = status
				snap.Bridges[i].LastPollAt = lastPollAt
				return
			}
		}
	})
}

// RecordChainRef appends the bridge service's chainRef to an existing
// bridge record by id, so a later poll targets the ref the service actually
// issued rather than the locally generated id.
func (s *Store) RecordChainRef(id string, chainRef string) error {
	return s.applyUpdate(func(snap *Snapshot) {
		for i := range snap.Bridges {
			if snap.Bridges[i].ID == id {
				snap.Bridges[i].ChainRefs = append(snap.Bridges[i].ChainRefs, chainRef)
				return
			}
		}
	})
}

// IncrementBridgeAttempts bumps the retry counter on an existing bridge
// record by id.
func (s *Store) IncrementBridgeAttempts(id string) error {
	return s.applyUpdate(func(snap *Snapshot) {
		for i := range snap.Bridges {
			if snap.Bridges[i].ID == id {
				snap.Bridges[i].Attempts++
				return
			}
		}
	})
}

// ApplyTentativeBalance adjusts one token's balance on one venue by delta,
// used for the optimistic debit/credit a bridge applies on completion ahead
// of the next confirmed inventory refresh.
func (s *Store) ApplyTentativeBalance(venue domain.Venue, symbol string, delta money.Amount) error {
	return s.applyUpdate(func(snap *Snapshot) {
		m := snap.Inventory.Primary
		if venue == domain.VenueSecondary {
			m = snap.Inventory.Secondary
		}
		bal, ok := m[symbol]
		if !ok {
			bal = domain.TokenBalance{Symbol: symbol}
		}
		bal.Balance = bal.Balance.Add(delta)
		bal.LastUpdated = time.Now()
		m[symbol] = bal
	})
}

// RecordTrade increments the append-only trade counter kept in the
// snapshot; the entries themselves live in the tradelog store (C14), which
// is independently queryable without the engine running.
func (s *Store) RecordTrade() error {
	return s.applyUpdate(func(snap *Snapshot) {
		snap.TradeCount++
	})
}
