package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relato/relato/engine"
)

// RedisDecisionCache implements engine.DecisionCache on Redis, sharing
// check decisions across service replicas. Entries expire via Redis TTLs;
// Purge scans the key prefix so a tuple write on any replica can drop every
// cached decision.
type RedisDecisionCache struct {
	client *redis.Client
	prefix string
}

// NewRedisDecisionCache creates a redis-backed decision cache. An empty
// prefix defaults to "relato:decision:".
func NewRedisDecisionCache(client *redis.Client, prefix string) *RedisDecisionCache {
	if prefix == "" {
		prefix = "relato:decision:"
	}
	return &RedisDecisionCache{client: client, prefix: prefix}
}

func (c *RedisDecisionCache) key(key string) string {
	return c.prefix + key
}

// Get returns the cached decision, if present.
func (c *RedisDecisionCache) Get(ctx context.Context, key string) (bool, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("persistence: decision cache get: %w", err)
	}
	return val == "1", true, nil
}

// Set caches a decision for ttl.
func (c *RedisDecisionCache) Set(ctx context.Context, key string, allowed bool, ttl time.Duration) error {
	val := "0"
	if allowed {
		val = "1"
	}
	if err := c.client.Set(ctx, c.key(key), val, ttl).Err(); err != nil {
		return fmt.Errorf("persistence: decision cache set: %w", err)
	}
	return nil
}

// Purge removes every cached decision under the prefix.
func (c *RedisDecisionCache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 512 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("persistence: decision cache purge: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("persistence: decision cache purge: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("persistence: decision cache purge: %w", err)
		}
	}
	return nil
}

// Compile-time interface check
var _ engine.DecisionCache = (*RedisDecisionCache)(nil)
