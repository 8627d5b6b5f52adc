package cache

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"
)

// Slot memoizes one list read for a fixed TTL. Reads never fail: on a fetch
// error the last cached value is served even if expired, and an empty list
// when nothing was ever cached.
type Slot[T any] struct {
	name  string
	ttl   time.Duration
	now   func() time.Time
	fetch func(ctx context.Context) ([]T, error)

	mu        sync.Mutex
	value     []T
	fetchedAt time.Time
	valid     bool
	// generation changes on every invalidation so a fetch that started
	// before it cannot repopulate the slot.
	generation uint64
}

func NewSlot[T any](name string, ttl time.Duration, now func() time.Time, fetch func(ctx context.Context) ([]T, error)) *Slot[T] {
	return &Slot[T]{name: name, ttl: ttl, now: now, fetch: fetch}
}

// Get returns the cached list while fresh, otherwise refetches. Concurrent
// misses are not merged; the last fetch to finish wins the slot.
func (s *Slot[T]) Get(ctx context.Context) []T {
	s.mu.Lock()
	if s.valid && s.now().Sub(s.fetchedAt) < s.ttl {
		v := slices.Clone(s.value)
		s.mu.Unlock()
		return v
	}
	gen := s.generation
	s.mu.Unlock()

	fresh, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Printf("[Cache] Error fetching %s: %v", s.name, err)
		if s.valid {
			log.Printf("[Cache] Using cached %s due to fetch error", s.name)
			return slices.Clone(s.value)
		}
		return []T{}
	}

	if fresh == nil {
		fresh = []T{}
	}
	if gen == s.generation {
		s.value = slices.Clone(fresh)
		s.fetchedAt = s.now()
		s.valid = true
	}
	return fresh
}

// Invalidate drops the cached value and its timestamp.
func (s *Slot[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = nil
	s.fetchedAt = time.Time{}
	s.valid = false
	s.generation++
}

// Cached reports whether the slot holds a value, fresh or not.
func (s *Slot[T]) Cached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid
}
