// Package cache provides TTL-governed memoization with single-flight rebuilds and stale fallback.
//
// Each key holds at most one entry; concurrent readers of an expired key join
// a single in-flight rebuild instead of racing duplicate upstream calls. When
// a rebuild fails and a previous value exists, that value is served flagged
// stale rather than surfacing the error.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// RebuildFunc produces a fresh value for a key whose entry expired.
type RebuildFunc[T any] func(ctx context.Context) (T, error)

// Entry is a stored value together with its freshness metadata.
type Entry[T any] struct {
	Value    T
	StoredAt time.Time
}

// Store is a generic TTL cache. The zero value is not usable; construct with New.
type Store[T any] struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]*Entry[T]

	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// New builds a store whose entries live for ttl.
func New[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		ttl:     ttl,
		entries: make(map[string]*Entry[T]),
	}
}

// TTL reports the configured entry lifetime.
func (s *Store[T]) TTL() time.Duration { return s.ttl }

func (s *Store[T]) live(key string, now time.Time) (*Entry[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return entry, now.Sub(entry.StoredAt) < s.ttl
}

// Get returns the live entry for key, rebuilding it when expired or absent.
// The stale flag is set when a rebuild failed and a previous value was served
// instead. When no previous value exists, the rebuild error propagates.
func (s *Store[T]) Get(ctx context.Context, key string, rebuild RebuildFunc[T]) (value T, stale bool, err error) {
	if entry, ok := s.live(key, time.Now()); ok {
		s.hits.Add(1)
		return entry.Value, false, nil
	}

	s.misses.Add(1)
	return s.build(ctx, key, rebuild)
}

// Refresh rebuilds the entry for key regardless of its liveness.
func (s *Store[T]) Refresh(ctx context.Context, key string, rebuild RebuildFunc[T]) (value T, stale bool, err error) {
	s.Invalidate(key)
	s.misses.Add(1)
	return s.build(ctx, key, rebuild)
}

type buildResult[T any] struct {
	value T
	stale bool
}

func (s *Store[T]) build(ctx context.Context, key string, rebuild RebuildFunc[T]) (T, bool, error) {
	out, err, _ := s.group.Do(key, func() (any, error) {
		// A concurrent caller may have completed the rebuild while this one
		// waited on the flight group.
		if entry, ok := s.live(key, time.Now()); ok {
			return buildResult[T]{value: entry.Value}, nil
		}

		fresh, err := rebuild(ctx)
		if err != nil {
			s.mu.RLock()
			prev, ok := s.entries[key]
			s.mu.RUnlock()

			if ok {
				return buildResult[T]{value: prev.Value, stale: true}, nil
			}
			return nil, err
		}

		s.mu.Lock()
		s.entries[key] = &Entry[T]{Value: fresh, StoredAt: time.Now()}
		s.mu.Unlock()

		return buildResult[T]{value: fresh}, nil
	})

	if err != nil {
		var zero T
		return zero, false, err
	}

	result := out.(buildResult[T])
	return result.value, result.stale, nil
}

// Invalidate forces the next Get for key to rebuild.
func (s *Store[T]) Invalidate(key string) {
	s.mu.Lock()
	if entry, ok := s.entries[key]; ok {
		// Keep the value for stale fallback but expire it.
		entry.StoredAt = time.Time{}
	}
	s.mu.Unlock()
}

// Drop removes the entry for key entirely, including its stale-fallback value.
func (s *Store[T]) Drop(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Seed installs a value with an explicit storage timestamp, used to restore
// persisted snapshots across restarts.
func (s *Store[T]) Seed(key string, value T, storedAt time.Time) {
	s.mu.Lock()
	s.entries[key] = &Entry[T]{Value: value, StoredAt: storedAt}
	s.mu.Unlock()
}

// Peek returns the entry for key without liveness checks or rebuilds.
func (s *Store[T]) Peek(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.entries[key]; ok {
		return entry.Value, true
	}
	var zero T
	return zero, false
}

// Metrics reports the accumulated hit and miss counters.
func (s *Store[T]) Metrics() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
