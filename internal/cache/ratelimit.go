package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// rateLimitPrefix is the Redis key prefix for per-IP buckets.
	rateLimitPrefix = "catalog:ratelimit:"
	// rateLimitTTL bounds how long an idle bucket is kept.
	rateLimitTTL = 60 * time.Second
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes tokens in one atomic step.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = math.max(0, now - last_update)
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after_ms = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after_ms = math.ceil((1 - tokens) / rate * 1000)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after_ms, math.floor(tokens)}
`)

// Limiter throttles requests per client IP with a Redis token bucket.
// Redis errors fail open.
type Limiter struct {
	client redis.Scripter
	logger *slog.Logger
	now    func() time.Time
}

// NewLimiter creates a Limiter.
func NewLimiter(client redis.Scripter, logger *slog.Logger) *Limiter {
	return &Limiter{
		client: client,
		logger: logger.With("component", "cache.ratelimit"),
		now:    time.Now,
	}
}

// Allow consumes one token from the bucket for (scope, ip).
func (l *Limiter) Allow(ctx context.Context, scope, ip string, ratePerSecond, burst int) Result {
	if ratePerSecond <= 0 || burst <= 0 {
		return Result{Allowed: true, Remaining: int64(burst)}
	}

	now := float64(l.now().UnixMilli()) / 1000
	res, err := tokenBucketScript.Run(ctx, l.client,
		[]string{bucketKey(scope, ip)},
		ratePerSecond, burst, now, int(rateLimitTTL.Seconds()),
	).Int64Slice()
	if err != nil || len(res) != 3 {
		l.logger.Warn("rate limit check failed, allowing request", "scope", scope, "error", err)
		return Result{Allowed: true, Remaining: int64(burst)}
	}

	return Result{
		Allowed:    res[0] == 1,
		Remaining:  res[2],
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}
}

// RetryAfterSeconds rounds d up to whole seconds, at least 1.
func RetryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

func bucketKey(scope, ip string) string {
	return rateLimitPrefix + scope + ":" + hashIP(ip)
}

// hashIP keeps raw client addresses out of Redis.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
