package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig sets per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	RequestsPerMinute int
	RequestsPerHour   int
	RequestsPerDay    int
	MaxDataPerDayMB   int
}

// Enabled reports whether any limit is set.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerMinute > 0 || c.RequestsPerHour > 0 || c.RequestsPerDay > 0 || c.MaxDataPerDayMB > 0
}

// RateLimiter counts requests and uploaded bytes per client in fixed
// minute, hour and day windows.
type RateLimiter struct {
	mu     sync.Mutex
	limits RateLimitConfig
	now    func() time.Time
	usage  map[string]*clientUsage
}

// window is a counter that restarts when its period has elapsed.
type window struct {
	start time.Time
	count int
}

func (w *window) roll(now time.Time, period time.Duration) {
	if now.Sub(w.start) >= period {
		w.start = now
		w.count = 0
	}
}

type clientUsage struct {
	minute   window
	hour     window
	day      window
	dayBytes int64
}

// Usage is a snapshot of one client's counters.
type Usage struct {
	RequestsLastMinute int
	RequestsLastHour   int
	RequestsToday      int
	BytesToday         int64
}

// NewRateLimiter creates a new rate limiter with the given limits.
func NewRateLimiter(limits RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limits: limits,
		now:    time.Now,
		usage:  make(map[string]*clientUsage),
	}
}

// CheckRateLimit records a request of dataSize bytes from client, or
// returns a *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) CheckRateLimit(client string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u, ok := rl.usage[client]
	if !ok {
		u = &clientUsage{
			minute: window{start: now},
			hour:   window{start: now},
			day:    window{start: startOfDay(now)},
		}
		rl.usage[client] = u
	}
	u.minute.roll(now, time.Minute)
	u.hour.roll(now, time.Hour)
	if day := startOfDay(now); !day.Equal(u.day.start) {
		u.day = window{start: day}
		u.dayBytes = 0
	}

	if l := rl.limits.RequestsPerMinute; l > 0 && u.minute.count >= l {
		return &RateLimitError{Type: "minute", Limit: l, RetryAfter: u.minute.start.Add(time.Minute).Sub(now)}
	}
	if l := rl.limits.RequestsPerHour; l > 0 && u.hour.count >= l {
		return &RateLimitError{Type: "hour", Limit: l, RetryAfter: u.hour.start.Add(time.Hour).Sub(now)}
	}
	resets := u.day.start.AddDate(0, 0, 1)
	if l := rl.limits.RequestsPerDay; l > 0 && u.day.count >= l {
		return &QuotaExceededError{Type: "requests", Limit: int64(l), Used: int64(u.day.count), Resets: resets}
	}
	if l := int64(rl.limits.MaxDataPerDayMB) * 1024 * 1024; l > 0 && u.dayBytes+dataSize > l {
		return &QuotaExceededError{Type: "data", Limit: l, Used: u.dayBytes, Resets: resets}
	}

	u.minute.count++
	u.hour.count++
	u.day.count++
	u.dayBytes += dataSize
	return nil
}

// GetUsage returns the current counters of client.
func (rl *RateLimiter) GetUsage(client string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u, ok := rl.usage[client]
	if !ok {
		return Usage{}
	}
	return Usage{
		RequestsLastMinute: u.minute.count,
		RequestsLastHour:   u.hour.count,
		RequestsToday:      u.day.count,
		BytesToday:         u.dayBytes,
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a daily quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
