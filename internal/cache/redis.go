package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"teamtodo/internal/config"
	"teamtodo/internal/models"
	"teamtodo/pkg/logger"
)

const (
	todosKeyPrefix = "todos:"
	dedupKeyPrefix = "dedup:"
)

// Connect builds a Redis client from config and verifies connectivity.
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = cfg.RedisPoolSize
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	return client, nil
}

// Cache is the team-keyed todo list cache plus the dispatcher's dedup claims.
// Cache errors degrade to misses; the database stays the source of truth.
type Cache struct {
	rdb      *redis.Client
	ttl      time.Duration
	dedupTTL time.Duration
}

// New returns a Cache over the given client.
func New(rdb *redis.Client, cacheTTL, dedupTTL time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: cacheTTL, dedupTTL: dedupTTL}
}

func todosKey(teamID string) string { return todosKeyPrefix + teamID }

// GetTodos reads a team's todo list. Returns (nil, false) on miss or error.
func (c *Cache) GetTodos(ctx context.Context, teamID string) ([]models.Todo, bool) {
	b, err := c.rdb.Get(ctx, todosKey(teamID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get todos failed", "error", err)
		return nil, false
	}
	var todos []models.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		logger.Debug(ctx, "Redis unmarshal todos failed", "error", err)
		return nil, false
	}
	return todos, true
}

// SetTodos writes a team's todo list with the configured TTL.
func (c *Cache) SetTodos(ctx context.Context, teamID string, todos []models.Todo) {
	b, err := json.Marshal(todos)
	if err != nil {
		logger.Debug(ctx, "Marshal todos for cache failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, todosKey(teamID), b, c.ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set todos failed", "error", err)
	}
}

// InvalidateTodos drops a team's cached list so the next read hits the DB.
func (c *Cache) InvalidateTodos(ctx context.Context, teamID string) {
	if err := c.rdb.Del(ctx, todosKey(teamID)).Err(); err != nil {
		logger.Debug(ctx, "Redis invalidate todos failed", "error", err)
	}
}

// ClaimKey claims a dedup key for the dedup TTL. It returns false when the
// key is already claimed, meaning an identical task is already queued. On
// Redis errors it claims optimistically: a duplicate enqueue is harmless
// because delivery is idempotent, a dropped task is not.
func (c *Cache) ClaimKey(ctx context.Context, key string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, dedupKeyPrefix+key, 1, c.dedupTTL).Result()
	if err != nil {
		logger.Debug(ctx, "Redis dedup claim failed", "error", err)
		return true, err
	}
	return ok, nil
}

// ReleaseKey releases a dedup claim once its task has been delivered, so a
// later identical submission enqueues again.
func (c *Cache) ReleaseKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, dedupKeyPrefix+key).Err()
}
