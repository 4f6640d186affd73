package venue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TimeSync tracks the offset between local and venue server clocks, used to
// timestamp signed requests the way the venue expects.
type TimeSync struct {
	getServerTime func() (int64, error)
	offset        int64
	lastSync      time.Time
	syncInterval  time.Duration
	log           zerolog.Logger
	mu            sync.RWMutex
}

// NewTimeSync creates a clock-sync helper around a server-time lookup.
func NewTimeSync(getServerTime func() (int64, error), log zerolog.Logger) *TimeSync {
	return &TimeSync{
		getServerTime: getServerTime,
		syncInterval:  30 * time.Minute,
		log:           log,
	}
}

// Start runs an initial sync then resyncs on syncInterval until ctx is done.
func (ts *TimeSync) Start(ctx context.Context) {
	if err := ts.Sync(ctx); err != nil {
		ts.log.Warn().Err(err).Msg("initial venue time sync failed")
	}
	go func() {
		ticker := time.NewTicker(ts.syncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ts.Sync(ctx); err != nil {
					ts.log.Warn().Err(err).Msg("venue time sync failed")
				}
			}
		}
	}()
}

// Sync performs one round-trip clock sync.
func (ts *TimeSync) Sync(ctx context.Context) error {
	localBefore := time.Now().UnixMilli()
	serverTime, err := ts.getServerTime()
	if err != nil {
		return err
	}
	localAfter := time.Now().UnixMilli()
	latency := (localAfter - localBefore) / 2

	ts.mu.Lock()
	ts.offset = serverTime - (localBefore + latency)
	ts.lastSync = time.Now()
	ts.mu.Unlock()
	return nil
}

// Now returns the current time adjusted by the measured offset.
func (ts *TimeSync) Now() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return time.Now().UnixMilli() + ts.offset
}

// Offset returns the current measured offset in milliseconds.
func (ts *TimeSync) Offset() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.offset
}
