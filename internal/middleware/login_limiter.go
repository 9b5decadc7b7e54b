package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"go-plan-portal/internal/route"
)

var ErrLimiterUnavailable = errors.New("login limiter unavailable")

// LoginLimiter counts login attempts per key inside a window. Allow reports
// whether one more attempt is permitted and, if not, how long to wait.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

const loginSweepThreshold = 1000

// MemoryLoginLimiter is the single-instance fallback used when no Redis URL
// is configured.
type MemoryLoginLimiter struct {
	limit   int
	window  time.Duration
	sweepAt int
	now     func() time.Time
	mu      sync.Mutex
	keys    map[string]*loginEntry
}

type loginEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLoginLimiter(limit int, window time.Duration) *MemoryLoginLimiter {
	limit, window = normalizeLoginLimit(limit, window)
	return &MemoryLoginLimiter{
		limit:   limit,
		window:  window,
		sweepAt: loginSweepThreshold,
		now:     time.Now,
		keys:    map[string]*loginEntry{},
	}
}

func (l *MemoryLoginLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	limiter, now := l.entry(key)

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, l.window, nil
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return false, delay, nil
	}

	return true, 0, nil
}

func (l *MemoryLoginLimiter) entry(key string) (*rate.Limiter, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.keys[key]
	if !ok {
		if len(l.keys) >= l.sweepAt {
			l.sweepLocked(now)
		}
		e = &loginEntry{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)}
		l.keys[key] = e
	}
	e.lastSeen = now

	return e.limiter, now
}

// sweepLocked drops keys idle for longer than the window. Their buckets have
// refilled by then, so forgetting them loses no state.
func (l *MemoryLoginLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	for key, e := range l.keys {
		if e.lastSeen.Before(cutoff) {
			delete(l.keys, key)
		}
	}
}

// RedisLoginLimiter shares a fixed-window counter across instances.
type RedisLoginLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLoginLimiter(client redis.UniversalClient, limit int, window time.Duration) *RedisLoginLimiter {
	limit, window = normalizeLoginLimit(limit, window)
	return &RedisLoginLimiter{client: client, limit: limit, window: window, prefix: "portal:login:"}
}

func (l *RedisLoginLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := l.prefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	// The first hit opens the window.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}

	if count <= int64(l.limit) {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = l.window
	}
	return false, ttl, nil
}

func normalizeLoginLimit(limit int, window time.Duration) (int, time.Duration) {
	if limit <= 0 {
		limit = 7
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return limit, window
}

// LoginThrottle limits POST /auth/login per client address. A limiter error
// lets the request through.
func LoginThrottle(limiter LoginLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || r.Method != http.MethodPost || r.URL.Path != route.LoginPath {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIPOf(r)
			allowed, retryAfter, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				slog.Warn("login limiter failed", "error", err, "client_ip", ip)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many login attempts, try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
