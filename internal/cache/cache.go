// Package cache provides the read-through byte cache shared by the query
// and map services.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache stores byte values by key.
type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Incr increments an integer counter and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Counter returns the counter value, 0 when unset.
	Counter(ctx context.Context, key string) (int64, error)
}

// ReadThrough returns the cached value of key or loads and stores it.
// Cache failures are logged and fall back to load.
func ReadThrough(ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return load(ctx)
	}
	val, ok, err := c.Get(ctx, key)
	if err != nil {
		slog.Default().Warn("cache get failed", slog.String("component", "cache"), slog.String("key", key), slog.Any("error", err))
	}
	if ok {
		return val, nil
	}

	val, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, val, ttl); err != nil {
		slog.Default().Warn("cache set failed", slog.String("component", "cache"), slog.String("key", key), slog.Any("error", err))
	}
	return val, nil
}

// Shared returns c if other processes see its contents, nil otherwise.
func Shared(c Cache) Cache {
	if r, ok := c.(*Redis); ok && r != nil {
		return r
	}
	return nil
}
