package venue

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimiter tracks a venue API's used weight against its published limit,
// the way a venue's rate-limit response headers are typically tracked.
type RateLimiter struct {
	usedWeight    int
	limit         int
	lastReset     time.Time
	resetInterval time.Duration
	log           zerolog.Logger
	mu            sync.RWMutex
}

// NewRateLimiter creates a rate limiter for a window of the given size.
func NewRateLimiter(limit int, resetInterval time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		limit:         limit,
		resetInterval: resetInterval,
		lastReset:     time.Now(),
		log:           log,
	}
}

// UpdateFromHeader updates used weight from a response header value.
func (rl *RateLimiter) UpdateFromHeader(headerValue string) {
	if headerValue == "" {
		return
	}
	weight, err := strconv.Atoi(headerValue)
	if err != nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastReset) >= rl.resetInterval {
		rl.usedWeight = 0
		rl.lastReset = time.Now()
	}
	rl.usedWeight = weight
	pct := float64(rl.usedWeight) / float64(rl.limit) * 100
	if pct >= 95 {
		rl.log.Warn().Float64("pct", pct).Msg("venue rate limit critical")
	} else if pct >= 80 {
		rl.log.Debug().Float64("pct", pct).Msg("venue rate limit elevated")
	}
}

// GetUsage reports current usage.
func (rl *RateLimiter) GetUsage() (used, limit int, percentage float64) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if time.Since(rl.lastReset) >= rl.resetInterval {
		return 0, rl.limit, 0
	}
	return rl.usedWeight, rl.limit, float64(rl.usedWeight) / float64(rl.limit) * 100
}

// ShouldDelay reports whether usage has reached 90% of the limit, so the
// caller should back off before its next request.
func (rl *RateLimiter) ShouldDelay() bool {
	_, _, pct := rl.GetUsage()
	return pct >= 90
}
