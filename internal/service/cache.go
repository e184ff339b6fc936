package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func assignmentViewKey(id uint) string {
	return fmt.Sprintf("assignment:%d:view", id)
}

func assignmentGradesKey(id uint) string {
	return fmt.Sprintf("assignment:%d:grades", id)
}

// viewCache stores read models in Redis. A nil client disables caching; failures only log.
type viewCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func newViewCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) viewCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return viewCache{client: client, ttl: ttl, logger: logger}
}

func (c viewCache) get(ctx context.Context, key string, target interface{}) bool {
	if c.client == nil {
		return false
	}

	cached, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to read cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false
	}

	c.logger.Debug().Str("key", key).Msg("cache hit")
	return true
}

func (c viewCache) set(ctx context.Context, key string, value interface{}) {
	if c.client == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to store cache")
	}
}

func (c viewCache) invalidate(ctx context.Context, keys ...string) {
	if c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate cache")
	}
}

// EventPublisher emits domain events after a state change commits.
type EventPublisher interface {
	Publish(ctx context.Context, name string, payload interface{}) error
}
