package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN when deleting by pattern.
const scanBatch = 500

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
//
// The cache is never the source of truth for scores: a miss or an error
// falls through to the store.
type Cache interface {
	// DeletePattern removes every key matching a glob pattern and returns how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int64, error)
	Ping(ctx context.Context) error
	Close() error

	SetScore(ctx context.Context, score *models.CompatibilityScore, ttl time.Duration) error
	GetScore(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, bool, error)
	SetBatchStatus(ctx context.Context, status *models.BatchStatus, ttl time.Duration) error
	GetBatchStatus(ctx context.Context, batchID uuid.UUID) (*models.BatchStatus, bool, error)
	// IncrWithExpiry counts hits in a fixed window: the expiry is set by the
	// first increment only, so later hits never extend it.
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("delete %q: %w", pattern, err)
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (c *RedisCache) SetScore(ctx context.Context, score *models.CompatibilityScore, ttl time.Duration) error {
	return c.setJSON(ctx, ScoreKey(score.CandidateID, score.JobID), score, ttl)
}

func (c *RedisCache) GetScore(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, bool, error) {
	var score models.CompatibilityScore
	ok, err := c.getJSON(ctx, ScoreKey(candidateID, jobID), &score)
	if !ok || err != nil {
		return nil, false, err
	}
	return &score, true, nil
}

func (c *RedisCache) SetBatchStatus(ctx context.Context, status *models.BatchStatus, ttl time.Duration) error {
	return c.setJSON(ctx, BatchStatusKey(status.ID), status, ttl)
}

func (c *RedisCache) GetBatchStatus(ctx context.Context, batchID uuid.UUID) (*models.BatchStatus, bool, error) {
	var status models.BatchStatus
	ok, err := c.getJSON(ctx, BatchStatusKey(batchID), &status)
	if !ok || err != nil {
		return nil, false, err
	}
	return &status, true, nil
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *RedisCache) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := c.get(ctx, key)
	if !ok || err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Compile-time check that RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
