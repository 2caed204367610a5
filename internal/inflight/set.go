// ABOUTME: Thread-safe set of in-flight operation keys with TTL expiry.
// ABOUTME: Tracks which items have a pending mutation so each can show its own busy state.

package inflight

import (
	"container/list"
	"sort"
	"sync"
	"time"
)

// claim stores when a key was claimed and its place in claim order.
type claim struct {
	timestamp time.Time
	element   *list.Element
}

// Set records keys that currently have an operation in flight. A claim
// that is never released lapses after ttl so a hung operation cannot pin a
// key forever. Uses a doubly-linked list to keep claim order for O(1)
// eviction of the oldest claim when the set is full.
type Set struct {
	mu      sync.RWMutex
	claims  map[string]*claim
	order   *list.List // keys in claim order (oldest at front)
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a set with the given claim TTL and maximum size. A background
// goroutine periodically drops expired claims; call Close to stop it.
func New(ttl time.Duration, maxSize int) *Set {
	s := &Set{
		claims:  make(map[string]*claim),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Has reports whether key has a live claim.
func (s *Set) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[key]
	if !ok {
		return false
	}
	return s.now().Sub(c.timestamp) < s.ttl
}

// Claim atomically marks key as in flight. It returns false if key already
// has a live claim, true if the caller now owns the claim.
func (s *Set) Claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.claims[key]; ok {
		if s.now().Sub(c.timestamp) < s.ttl {
			return false
		}
		// Expired, take it over
		s.order.Remove(c.element)
		delete(s.claims, key)
	}

	if len(s.claims) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.order.PushBack(key)
	s.claims[key] = &claim{
		timestamp: s.now(),
		element:   elem,
	}
	return true
}

// Release removes the claim on key. Releasing an unclaimed key is a no-op.
func (s *Set) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.claims[key]; ok {
		s.order.Remove(c.element)
		delete(s.claims, key)
	}
}

// Keys returns the live claimed keys, sorted.
func (s *Set) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	keys := make([]string, 0, len(s.claims))
	for k, c := range s.claims {
		if now.Sub(c.timestamp) < s.ttl {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of live claims.
func (s *Set) Len() int {
	return len(s.Keys())
}

// evictOldest removes the oldest claim. Must be called with mu held.
func (s *Set) evictOldest() {
	front := s.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	s.order.Remove(front)
	delete(s.claims, key)
}

// cleanup runs in a background goroutine, periodically removing expired claims.
func (s *Set) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCleanup()
		case <-s.done:
			return
		}
	}
}

// runCleanup removes all expired claims.
func (s *Set) runCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, c := range s.claims {
		if now.Sub(c.timestamp) >= s.ttl {
			s.order.Remove(c.element)
			delete(s.claims, key)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (s *Set) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.done)
		s.closed = true
	}
}
