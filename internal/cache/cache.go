// Package cache provides a read-through cache for persisted reports.
//
// Reports change only when a batch job (or an explicit "generate now")
// upserts them, so entries are written on read and deleted on upsert. A miss
// is (nil, nil); errors are real transport or decode failures, which callers
// log and treat as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-couple-reports/internal/domain"
)

// DefaultTTL bounds how long a cached report may be served.
const DefaultTTL = 10 * time.Minute

// ReportCache caches weekly and monthly report rows by their identity.
type ReportCache interface {
	GetWeekly(ctx context.Context, coupleID string, weekStart time.Time) (*domain.WeeklyReport, error)
	SetWeekly(ctx context.Context, r *domain.WeeklyReport) error
	InvalidateWeekly(ctx context.Context, coupleID string, weekStart time.Time) error

	GetMonthly(ctx context.Context, userID string, monthStart time.Time) (*domain.MonthlyTrackReport, error)
	SetMonthly(ctx context.Context, r *domain.MonthlyTrackReport) error
	InvalidateMonthly(ctx context.Context, userID string, monthStart time.Time) error
}

// WeeklyKey is the cache key of one weekly report.
func WeeklyKey(coupleID string, weekStart time.Time) string {
	return fmt.Sprintf("report:weekly:%s:%s", coupleID, weekStart.UTC().Format(time.DateOnly))
}

// MonthlyKey is the cache key of one monthly report.
func MonthlyKey(userID string, monthStart time.Time) string {
	return fmt.Sprintf("report:monthly:%s:%s", userID, monthStart.UTC().Format("2006-01"))
}

type redisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis returns a ReportCache backed by client. A non-positive ttl falls
// back to DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) ReportCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisCache{client: client, ttl: ttl}
}

func (c *redisCache) GetWeekly(ctx context.Context, coupleID string, weekStart time.Time) (*domain.WeeklyReport, error) {
	var r domain.WeeklyReport
	ok, err := c.get(ctx, WeeklyKey(coupleID, weekStart), &r)
	if !ok || err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *redisCache) SetWeekly(ctx context.Context, r *domain.WeeklyReport) error {
	return c.set(ctx, WeeklyKey(r.CoupleID, r.WeekStart), r)
}

func (c *redisCache) InvalidateWeekly(ctx context.Context, coupleID string, weekStart time.Time) error {
	return c.client.Del(ctx, WeeklyKey(coupleID, weekStart)).Err()
}

func (c *redisCache) GetMonthly(ctx context.Context, userID string, monthStart time.Time) (*domain.MonthlyTrackReport, error) {
	var r domain.MonthlyTrackReport
	ok, err := c.get(ctx, MonthlyKey(userID, monthStart), &r)
	if !ok || err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *redisCache) SetMonthly(ctx context.Context, r *domain.MonthlyTrackReport) error {
	return c.set(ctx, MonthlyKey(r.UserID, r.MonthStart), r)
}

func (c *redisCache) InvalidateMonthly(ctx context.Context, userID string, monthStart time.Time) error {
	return c.client.Del(ctx, MonthlyKey(userID, monthStart)).Err()
}

func (c *redisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// Drop entries written by an incompatible build.
		_ = c.client.Del(ctx, key).Err()
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *redisCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Noop is the ReportCache used when no Redis address is configured: every
// read misses and every write succeeds.
type Noop struct{}

func (Noop) GetWeekly(context.Context, string, time.Time) (*domain.WeeklyReport, error) {
	return nil, nil
}

func (Noop) SetWeekly(context.Context, *domain.WeeklyReport) error { return nil }

func (Noop) InvalidateWeekly(context.Context, string, time.Time) error { return nil }

func (Noop) GetMonthly(context.Context, string, time.Time) (*domain.MonthlyTrackReport, error) {
	return nil, nil
}

func (Noop) SetMonthly(context.Context, *domain.MonthlyTrackReport) error { return nil }

func (Noop) InvalidateMonthly(context.Context, string, time.Time) error { return nil }
