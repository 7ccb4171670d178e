package cookie

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every Redis key of this package.
const DefaultPrefix = "gs"

// RedisStore keeps each jar in a Redis list at <prefix>:jar:<fingerprint>.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store. A ttl of zero leaves keys without expiry.
func NewRedisStore(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(fp string) string {
	return s.prefix + ":jar:" + fp
}

// Load returns the list contents as a jar.
func (s *RedisStore) Load(ctx context.Context, fp string) (Jar, error) {
	lines, err := s.redis.LRange(ctx, s.key(fp), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(lines) == 0 {
		return nil, nil
	}
	jar := make(Jar, 0, len(lines))
	for _, line := range lines {
		if c, ok := ParseToken(line); ok {
			jar = append(jar, c)
		}
	}
	return jar, nil
}

// Append pushes every token in one transaction and refreshes the TTL.
func (s *RedisStore) Append(ctx context.Context, fp string, jar Jar) error {
	if len(jar) == 0 {
		return nil
	}
	lines := jar.Lines()
	values := make([]interface{}, len(lines))
	for i, line := range lines {
		values[i] = line
	}

	key := s.key(fp)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
