// Package cache provides the key-value cache used to memoize quality
// assessments, with a ristretto-backed implementation and a no-op
// fallback so scoring still functions when no cache is available.
package cache

import (
	"context"
	"time"
)

// Cache is the narrow contract the scorer depends on. Entries are
// derived deterministically from content, so a duplicate concurrent
// write of the same key is idempotent and needs no cross-task locking.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	ClearByPrefix(ctx context.Context, prefix string)
}

// Stats counts cache effectiveness for host dashboards.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// StatsReporter is implemented by caches that track hit rates.
type StatsReporter interface {
	Stats() Stats
}

// Noop is the degraded mode: every read misses, every write is
// discarded. Scoring proceeds uncached.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool)            { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration)    {}
func (Noop) Delete(context.Context, string)                        {}
func (Noop) ClearByPrefix(context.Context, string)                 {}
