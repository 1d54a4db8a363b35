package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
)

// CacheRepository keeps a short-TTL copy of schedule documents in Redis to
// absorb read traffic between mutations.
type CacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheRepository constructs the cache with the configured schedule TTL.
func NewCacheRepository(client *redis.Client, ttl time.Duration) *CacheRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CacheRepository{client: client, ttl: ttl}
}

func scheduleKey(id int) string {
	return fmt.Sprintf("schedule:%d", id)
}

// GetSchedule returns a cached schedule or a cache-miss error.
func (c *CacheRepository) GetSchedule(ctx context.Context, id int) (*models.Schedule, error) {
	data, err := c.client.Get(ctx, scheduleKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.Clone(appErrors.ErrCacheMiss, fmt.Sprintf("schedule %d not cached", id))
		}
		return nil, fmt.Errorf("get cached schedule: %w", err)
	}
	var schedule models.Schedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("decode cached schedule: %w", err)
	}
	return &schedule, nil
}

// SetSchedule stores a schedule under its generation ID.
func (c *CacheRepository) SetSchedule(ctx context.Context, schedule *models.Schedule) error {
	data, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("encode schedule for cache: %w", err)
	}
	if err := c.client.Set(ctx, scheduleKey(schedule.ScheduleID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached schedule: %w", err)
	}
	return nil
}

// InvalidateSchedule drops a cached schedule after a mutation.
func (c *CacheRepository) InvalidateSchedule(ctx context.Context, id int) error {
	if err := c.client.Del(ctx, scheduleKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate cached schedule: %w", err)
	}
	return nil
}
