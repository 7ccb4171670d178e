package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle tuning parameters. A non-positive MaxLogins
// disables the throttle.
type Config struct {
	MaxLogins int
	Window    time.Duration
}

// Limiter grants each fingerprint at most MaxLogins fresh logins per fixed
// window. The counter lives in Redis so that every process sharing the
// fingerprint draws from the same budget.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// takeScript consumes one login unless the budget is spent. The window
// starts with the first login and is never extended. Returns {granted,
// count, pttl}.
var takeScript = redis.NewScript(`
local n = tonumber(redis.call("GET", KEYS[1]) or "0")
if n >= tonumber(ARGV[1]) then
	return {0, n, redis.call("PTTL", KEYS[1])}
end
n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[2]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {1, n, redis.call("PTTL", KEYS[1])}
`)

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, prefix string, cfg Config) *Limiter {
	if prefix == "" {
		prefix = "gs"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

// Enabled reports whether a login budget is configured.
func (l *Limiter) Enabled() bool {
	return l != nil && l.config.MaxLogins > 0
}

func (l *Limiter) key(fp string) string {
	return l.prefix + ":login:" + fp
}

// Take consumes one login of fp's budget. A spent budget yields a
// *LimitedError, which matches ErrRateLimited.
func (l *Limiter) Take(ctx context.Context, fp string) error {
	if !l.Enabled() {
		return nil
	}
	res, err := takeScript.Run(ctx, l.redis, []string{l.key(fp)},
		l.config.MaxLogins, strconv.FormatInt(l.config.Window.Milliseconds(), 10)).Int64Slice()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) != 3 {
		return fmt.Errorf("%w: unexpected reply %v", ErrRedisUnavailable, res)
	}
	if res[0] == 1 {
		return nil
	}
	limited := &LimitedError{Attempts: int(res[1])}
	if res[2] > 0 {
		limited.RetryAfter = time.Duration(res[2]) * time.Millisecond
	}
	return limited
}

// Reset clears the budget of fp.
func (l *Limiter) Reset(ctx context.Context, fp string) error {
	if err := l.redis.Del(ctx, l.key(fp)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the logins counted in the current window.
func (l *Limiter) Attempts(ctx context.Context, fp string) (int, error) {
	n, err := l.redis.Get(ctx, l.key(fp)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}
