// Package cache keeps the latest dashboard views in Redis so restarted
// or secondary dashboard_api instances can answer before their first refresh.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/dashboard"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/flowgraph"
)

const (
	// ViewKeyPrefix prefixes the latest view per mode
	ViewKeyPrefix = "esm:view:"
	// DayKeyPrefix prefixes closed day views by date
	DayKeyPrefix = "esm:day:"

	RealtimeTTL = 30 * time.Second
	DailyTTL    = 10 * time.Minute
	// Closed days never change
	ClosedDayTTL = 7 * 24 * time.Hour
)

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis. An empty address disables caching and
// returns a nil cache, which every method accepts.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func ViewKey(mode flowgraph.Mode) string {
	return ViewKeyPrefix + string(mode)
}

func DayKey(day string) string {
	return DayKeyPrefix + day
}

func ttlFor(mode flowgraph.Mode) time.Duration {
	if mode == flowgraph.ModeDaily {
		return DailyTTL
	}
	return RealtimeTTL
}

// StoreView saves view as the latest of its mode.
func (r *RedisCache) StoreView(ctx context.Context, view dashboard.View) error {
	if r == nil {
		return nil
	}
	return r.set(ctx, ViewKey(view.Mode), view, ttlFor(view.Mode))
}

// LatestView returns nil when nothing is cached.
func (r *RedisCache) LatestView(ctx context.Context, mode flowgraph.Mode) (*dashboard.View, error) {
	if r == nil {
		return nil, nil
	}
	return r.get(ctx, ViewKey(mode))
}

func (r *RedisCache) StoreClosedDay(ctx context.Context, day string, view dashboard.View) error {
	if r == nil {
		return nil
	}
	return r.set(ctx, DayKey(day), view, ClosedDayTTL)
}

func (r *RedisCache) ClosedDay(ctx context.Context, day string) (*dashboard.View, error) {
	if r == nil {
		return nil, nil
	}
	return r.get(ctx, DayKey(day))
}

func (r *RedisCache) set(ctx context.Context, key string, view dashboard.View, ttl time.Duration) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) get(ctx context.Context, key string) (*dashboard.View, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var view dashboard.View
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &view, nil
}

func (r *RedisCache) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}
