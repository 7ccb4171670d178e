package cookie

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when the re-authentication lock is not acquired
// within the configured timeout.
var ErrLockTimeout = errors.New("re-authentication lock timeout")

// Locker serializes re-authentication per fingerprint.
type Locker interface {
	// Lock blocks until the fingerprint is held. The returned unlock is
	// idempotent.
	Lock(ctx context.Context, fp string) (unlock func(), err error)
}

// ProcessLocker is an in-process Locker.
type ProcessLocker struct {
	timeout time.Duration

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewProcessLocker returns a locker. A zero timeout waits until ctx ends.
func NewProcessLocker(timeout time.Duration) *ProcessLocker {
	return &ProcessLocker{
		timeout: timeout,
		slots:   make(map[string]chan struct{}),
	}
}

func (l *ProcessLocker) slot(fp string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[fp]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[fp] = s
	}
	return s
}

// Lock acquires the slot of fp.
func (l *ProcessLocker) Lock(ctx context.Context, fp string) (func(), error) {
	slot := l.slot(fp)

	var expired <-chan time.Time
	if l.timeout > 0 {
		timer := time.NewTimer(l.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-slot })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, ErrLockTimeout
	}
}

const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLockLua = redis.NewScript(releaseLockScript)

const (
	lockPollMin = 10 * time.Millisecond
	lockPollMax = 250 * time.Millisecond
)

// RedisLocker is a Locker shared by every process using the same Redis.
// Each holder owns a random token; release only deletes its own token.
type RedisLocker struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
	lease   time.Duration
}

// NewRedisLocker creates a locker. lease bounds how long a crashed holder can
// keep the lock.
func NewRedisLocker(redisClient redis.UniversalClient, prefix string, timeout, lease time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &RedisLocker{
		redis:   redisClient,
		prefix:  prefix,
		timeout: timeout,
		lease:   lease,
	}
}

func (l *RedisLocker) key(fp string) string {
	return l.prefix + ":lock:" + fp
}

// Lock polls SET NX with backoff until the lock is held or the timeout passes.
func (l *RedisLocker) Lock(ctx context.Context, fp string) (func(), error) {
	key := l.key(fp)
	token := uuid.NewString()

	var deadline time.Time
	if l.timeout > 0 {
		deadline = time.Now().Add(l.timeout)
	}

	wait := lockPollMin
	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// Release must run even when the caller's context is done.
					_ = releaseLockLua.Run(context.Background(), l.redis, []string{key}, token).Err()
				})
			}, nil
		}

		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, ErrLockTimeout
			}
			if wait > remaining {
				wait = remaining
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		wait *= 2
		if wait > lockPollMax {
			wait = lockPollMax
		}
	}
}
