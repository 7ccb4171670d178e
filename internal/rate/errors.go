package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is matched by every LimitedError.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// LimitedError reports a spent login budget. RetryAfter is zero when the
// window has no expiry.
type LimitedError struct {
	Attempts   int
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: %d logins in window, retry after %s", e.Attempts, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited: %d logins in window", e.Attempts)
}

func (e *LimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
