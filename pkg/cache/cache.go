// Package cache stores scheduling results and rendered artifacts between runs.
//
// A [Cache] is a plain byte store with per-entry TTLs. Three backends are
// provided: [FileCache] for the CLI (~/.cache/hlsched), [RedisCache] for
// the HTTP server, and [NullCache] when caching is disabled. Keys are built
// by a [Keyer] so that every backend agrees on the key layout:
//
//	c, _ := cache.NewFileCache(dir)
//	key := cache.NewDefaultKeyer().ScheduleKey(problemHash, cache.ScheduleKeyOpts{Priority: "composite"})
//	if data, hit, _ := c.Get(ctx, key); hit {
//	    // decode the cached result
//	}
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry kind.
const (
	TTLSchedule = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte store with expiring entries.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}
