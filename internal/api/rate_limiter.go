package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/property-portfolio/internal/errors"
	"github.com/property-portfolio/internal/logging"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Throttle decides whether a client may make another request.
type Throttle interface {
	// Allow records one request for key. When it is refused, retryAfter says
	// how long the client should wait.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// Limits on the per-client buckets kept by RateLimiter.
const (
	DefaultLimiterIdleTTL    = 10 * time.Minute
	DefaultLimiterMaxClients = 10000
)

// RateLimiter is a per-client token bucket kept in process memory. Buckets
// idle for longer than idleTTL are dropped, and the map never holds more
// than maxClients entries.
type RateLimiter struct {
	limiters map[string]*clientLimiter
	mu       sync.RWMutex

	limit     rate.Limit
	burstSize int

	idleTTL    time.Duration
	maxClients int
	lastSweep  time.Time
	now        func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		limit:      rate.Limit(requestsPerSecond),
		burstSize:  burst,
		idleTTL:    DefaultLimiterIdleTTL,
		maxClients: DefaultLimiterMaxClients,
		lastSweep:  time.Now(),
		now:        time.Now,
	}
}

// getLimiter returns the rate limiter for a specific client
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.RLock()
	entry, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		entry.lastSeen.Store(now.UnixNano())
		return entry.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check in case another goroutine created it
	if entry, exists := rl.limiters[key]; exists {
		entry.lastSeen.Store(now.UnixNano())
		return entry.limiter
	}

	if now.Sub(rl.lastSweep) >= rl.idleTTL || len(rl.limiters) >= rl.maxClients {
		rl.evictLocked(now)
	}

	entry = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burstSize)}
	entry.lastSeen.Store(now.UnixNano())
	rl.limiters[key] = entry

	return entry.limiter
}

// evictLocked drops idle buckets, then the least recently seen ones while the
// map is still full. Callers hold rl.mu.
func (rl *RateLimiter) evictLocked(now time.Time) {
	rl.lastSweep = now
	cutoff := now.Add(-rl.idleTTL).UnixNano()
	for key, entry := range rl.limiters {
		if entry.lastSeen.Load() < cutoff {
			delete(rl.limiters, key)
		}
	}

	for len(rl.limiters) > 0 && len(rl.limiters) >= rl.maxClients {
		var oldestKey string
		oldest := int64(math.MaxInt64)
		for key, entry := range rl.limiters {
			if seen := entry.lastSeen.Load(); seen < oldest {
				oldest, oldestKey = seen, key
			}
		}
		delete(rl.limiters, oldestKey)
	}
}

// clients reports how many buckets are held.
func (rl *RateLimiter) clients() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

// Allow implements Throttle.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	reservation := rl.getLimiter(key).Reserve()
	if !reservation.OK() {
		return false, time.Second, nil
	}

	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return false, delay, nil
	}
	return true, 0, nil
}

// RedisRateLimiter counts requests per client in fixed windows stored in
// Redis, so several server processes share one budget.
type RedisRateLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisRateLimiter allows limit requests per client in each window.
func NewRedisRateLimiter(client redis.Cmdable, limit int, window time.Duration) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if window < time.Second {
		return nil, fmt.Errorf("window must be at least 1s, got %s", window)
	}

	return &RedisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: "throttle:",
		now:    time.Now,
	}, nil
}

// Allow implements Throttle.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := rl.now()
	windowStart := now.Truncate(rl.window)
	redisKey := rl.prefix + key + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)

	pipe := rl.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("throttle counter: %w", err)
	}

	if count.Val() > rl.limit {
		return false, windowStart.Add(rl.window).Sub(now), nil
	}
	return true, 0, nil
}

// RateLimitMiddleware refuses requests once the client's budget is spent.
// Clients are keyed by clientKey. A failing throttle store lets the request
// through.
func RateLimitMiddleware(throttle Throttle, clientKey func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := throttle.Allow(r.Context(), clientKey(r))
			if err != nil {
				logging.FromContext(r.Context()).WithError(err).Warn("throttle unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				respondError(w, r, apperrors.NewRateLimitError(max(seconds, 1)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
