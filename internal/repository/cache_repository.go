package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
)

const publishedKeyPrefix = "schedule:published:"

// PublishedScheduleKey is the cache key holding a horizon's published schedule.
func PublishedScheduleKey(horizonID string) string {
	return publishedKeyPrefix + horizonID
}

// CacheRepository keeps read-through copies of published schedules in Redis.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository. A nil client disables caching.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r == nil || r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r == nil || r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if r == nil || r.client == nil || len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// DeleteByPattern removes cached entries matching the provided pattern.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r == nil || r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	return nil
}

// GetPublished returns the cached published schedule of a horizon or ErrCacheMiss.
func (r *CacheRepository) GetPublished(ctx context.Context, horizonID string) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := r.Get(ctx, PublishedScheduleKey(horizonID), &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// SetPublished caches the published schedule; failures are logged and swallowed.
func (r *CacheRepository) SetPublished(ctx context.Context, schedule *models.Schedule, ttl time.Duration) {
	if schedule == nil {
		return
	}
	if err := r.Set(ctx, PublishedScheduleKey(schedule.HorizonID), schedule, ttl); err != nil {
		r.logger.Warn("cache published schedule", zap.String("horizon_id", schedule.HorizonID), zap.Error(err))
	}
}

// InvalidatePublished drops the cached published schedule of a horizon.
func (r *CacheRepository) InvalidatePublished(ctx context.Context, horizonID string) {
	if err := r.Delete(ctx, PublishedScheduleKey(horizonID)); err != nil {
		r.logger.Warn("invalidate published schedule", zap.String("horizon_id", horizonID), zap.Error(err))
	}
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
