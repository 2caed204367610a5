// ABOUTME: In-memory synchronous observer hub for state snapshots
// ABOUTME: Delivers each published value to every subscriber callback in subscription order

package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Hub fans published values out to subscriber callbacks. Callbacks run
// synchronously on the publishing goroutine, after the publisher has
// released its own locks, so a callback may safely read back from the
// component that published.
type Hub[T any] struct {
	mu     sync.RWMutex
	order  []string
	subs   map[string]func(T)
	logger *slog.Logger
}

// NewHub creates a hub. Pass nil logger for default.
func NewHub[T any](logger *slog.Logger) *Hub[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub[T]{
		subs:   make(map[string]func(T)),
		logger: logger,
	}
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is safe to call more than once.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	subID := uuid.New().String()

	h.mu.Lock()
	h.subs[subID] = fn
	h.order = append(h.order, subID)
	h.mu.Unlock()

	h.logger.Debug("subscriber added", "sub_id", subID)

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(subID) })
	}
}

func (h *Hub[T]) remove(subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[subID]; !ok {
		return
	}
	delete(h.subs, subID)
	for i, id := range h.order {
		if id == subID {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}

	h.logger.Debug("subscriber removed", "sub_id", subID)
}

// Publish calls every subscriber with v.
func (h *Hub[T]) Publish(v T) {
	// Copy callbacks under read lock to avoid holding lock during calls
	h.mu.RLock()
	targets := make([]func(T), 0, len(h.order))
	for _, id := range h.order {
		targets = append(targets, h.subs[id])
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(v)
	}
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
