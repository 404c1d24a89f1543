package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/geo_incident_system/internal/models"
	"github.com/shenikar/geo_incident_system/internal/service"
)

const (
	guardKeyPrefix    = "incident_guard:"
	guardPollInterval = 25 * time.Millisecond
)

// снимает блокировку, только если она все еще принадлежит владельцу токена
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCreationGuard - блокировка SET NX PX с ограниченным ожиданием
type RedisCreationGuard struct {
	redisClient *redis.Client
	ttl         time.Duration
	wait        time.Duration
}

func NewRedisCreationGuard(client *redis.Client, ttl, wait time.Duration) service.CreationGuard {
	return &RedisCreationGuard{
		redisClient: client,
		ttl:         ttl,
		wait:        wait,
	}
}

// Acquire ждет освобождения ключа не дольше wait; по истечении - ErrStorageConflict
func (g *RedisCreationGuard) Acquire(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(g.wait)

	for {
		ok, err := g.redisClient.SetNX(ctx, guardKeyPrefix+key, token, g.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("failed to acquire guard %s: %w", key, err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("guard %s is busy: %w", key, models.ErrStorageConflict)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(guardPollInterval):
		}
	}
}

func (g *RedisCreationGuard) Release(ctx context.Context, key, token string) error {
	err := releaseScript.Run(ctx, g.redisClient, []string{guardKeyPrefix + key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release guard %s: %w", key, err)
	}
	return nil
}
