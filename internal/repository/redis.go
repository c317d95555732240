package repository

import (
	"context"
	"fmt"
	"time"

	"clinicbook/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const lockKeyPrefix = "clinicbook:resource_lock:"

// releaseScript deletes the lock only when it still holds our token, so an
// expired lease taken over by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisResourceLocker serializes booking mutations per resource across
// processes using a SET NX PX lease.
type RedisResourceLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
	logger     *zerolog.Logger
}

func NewRedisResourceLocker(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *RedisResourceLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisResourceLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: 20 * time.Millisecond,
		logger:     logger,
	}
}

func (l *RedisResourceLocker) Acquire(ctx context.Context, resourceID string) (func(), error) {
	key := lockKeyPrefix + resourceID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: redis setnx %s: %v", domain.ErrTransientStore, key, err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-time.After(l.retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: acquire lock for resource %s: %v",
				domain.ErrTransientStore, resourceID, ctx.Err())
		}
	}
}

func (l *RedisResourceLocker) release(key, token string) {
	// Release must not inherit a cancelled request context.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
		l.logger.Error().Err(err).Str("key", key).Msg("release resource lock")
	}
}
