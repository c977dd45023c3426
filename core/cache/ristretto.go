package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultNumCounters = 1e6
	defaultMaxCost     = 64 << 20 // 64MB of cached assessments
	defaultBufferItems = 64
)

// RistrettoConfig sizes the in-process assessment cache.
type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
}

// Ristretto is the production cache: cost-bounded, TTL-evicting,
// safe for concurrent department tasks.
type Ristretto struct {
	cache *ristretto.Cache

	// keys mirrors live keys so ClearByPrefix can enumerate them;
	// ristretto itself has no scan operation.
	mu   sync.Mutex
	keys map[string]struct{}

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRistretto creates the ristretto-backed cache. A nil config uses
// defaults.
func NewRistretto(cfg *RistrettoConfig) (*Ristretto, error) {
	numCounters := int64(defaultNumCounters)
	maxCost := int64(defaultMaxCost)
	bufferItems := int64(defaultBufferItems)
	if cfg != nil {
		if cfg.NumCounters > 0 {
			numCounters = cfg.NumCounters
		}
		if cfg.MaxCost > 0 {
			maxCost = cfg.MaxCost
		}
		if cfg.BufferItems > 0 {
			bufferItems = cfg.BufferItems
		}
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &Ristretto{
		cache: c,
		keys:  make(map[string]struct{}),
	}, nil
}

// Get retrieves a value. Miss and hit counts feed Stats.
func (r *Ristretto) Get(_ context.Context, key string) ([]byte, bool) {
	val, found := r.cache.Get(key)
	if !found {
		r.misses.Add(1)
		return nil, false
	}
	data, ok := val.([]byte)
	if !ok {
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return data, true
}

// Set stores a value with the given TTL. Writes are buffered; Wait
// makes them visible before Set returns, which keeps the
// assess-twice-one-upstream-call guarantee observable.
func (r *Ristretto) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	r.cache.SetWithTTL(key, value, int64(len(value)), ttl)
	r.cache.Wait()

	r.mu.Lock()
	r.keys[key] = struct{}{}
	r.mu.Unlock()
}

// Delete removes a single key.
func (r *Ristretto) Delete(_ context.Context, key string) {
	r.cache.Del(key)
	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()
}

// ClearByPrefix removes every key with the given prefix, e.g. all
// assessments for one department.
func (r *Ristretto) ClearByPrefix(_ context.Context, prefix string) {
	r.mu.Lock()
	var doomed []string
	for key := range r.keys {
		if strings.HasPrefix(key, prefix) {
			doomed = append(doomed, key)
			delete(r.keys, key)
		}
	}
	r.mu.Unlock()

	for _, key := range doomed {
		r.cache.Del(key)
	}
}

// Stats returns hit/miss counts since construction.
func (r *Ristretto) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}

// Close releases the underlying cache resources.
func (r *Ristretto) Close() {
	r.cache.Close()
}
