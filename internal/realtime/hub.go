// Package realtime keeps cached lists honest by following the backend change
// feeds, one per table, and notifies subscribers after a short delay.
package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/example/meubles-dor/internal/infrastructure/feed"
	"github.com/example/meubles-dor/internal/infrastructure/store"
)

// DefaultDelay is how long after an event its handler runs.
const DefaultDelay = 100 * time.Millisecond

// Opener opens a change feed for a table.
type Opener interface {
	OpenChangeFeed(ctx context.Context, table string) (feed.Feed, error)
}

// Invalidator drops cached data for a table.
type Invalidator interface {
	Invalidate(table string)
}

// Handler is called once per change event.
type Handler func(event store.ChangeEvent)

// Hub holds at most one live feed per table.
type Hub struct {
	opener Opener
	cache  Invalidator
	delay  time.Duration

	mu   sync.Mutex
	subs map[string]*subscription
}

// NewHub builds a Hub. cache may be nil when nothing needs invalidating.
func NewHub(opener Opener, cache Invalidator, delay time.Duration) *Hub {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Hub{
		opener: opener,
		cache:  cache,
		delay:  delay,
		subs:   make(map[string]*subscription),
	}
}

type subscription struct {
	table   string
	feed    feed.Feed
	handler Handler
	stopped chan struct{}
	once    sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() {
		close(s.stopped)
		if err := s.feed.Close(); err != nil {
			log.Printf("[Realtime] Error closing %s feed: %v", s.table, err)
		}
	})
}

func (s *subscription) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// Subscribe opens the change feed for table, replacing any feed already open
// for it. Every event invalidates the table's cache entry and then, after the
// hub delay, calls handler. Events are never merged: N events give N calls.
// When the feed cannot be opened the error is logged and returned, and the
// table is left without a subscription.
//
// The feed is opened without holding the hub lock, so a slow connect does not
// stall Unsubscribe, Active or other tables.
func (h *Hub) Subscribe(ctx context.Context, table string, handler Handler) error {
	f, err := h.opener.OpenChangeFeed(ctx, table)
	if err != nil {
		log.Printf("[Realtime] Error subscribing to %s: %v", table, err)
		h.Unsubscribe(table)
		return err
	}

	sub := &subscription{
		table:   table,
		feed:    f,
		handler: handler,
		stopped: make(chan struct{}),
	}

	h.mu.Lock()
	old, replaced := h.subs[table]
	h.subs[table] = sub
	h.mu.Unlock()

	if replaced {
		old.stop()
	}
	go h.run(sub)

	log.Printf("[Realtime] Subscribed to %s changes", table)
	return nil
}

func (h *Hub) SubscribeToProducts(ctx context.Context, handler Handler) error {
	return h.Subscribe(ctx, store.TableProducts, handler)
}

func (h *Hub) SubscribeToCategories(ctx context.Context, handler Handler) error {
	return h.Subscribe(ctx, store.TableCategories, handler)
}

func (h *Hub) SubscribeToOrders(ctx context.Context, handler Handler) error {
	return h.Subscribe(ctx, store.TableOrders, handler)
}

// Unsubscribe closes the feed for table, if any.
func (h *Hub) Unsubscribe(table string) {
	h.mu.Lock()
	sub, ok := h.subs[table]
	delete(h.subs, table)
	h.mu.Unlock()

	if ok {
		sub.stop()
	}
}

// UnsubscribeAll closes every open feed exactly once. Safe to call with no
// subscriptions and more than once.
func (h *Hub) UnsubscribeAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	if len(subs) > 0 {
		log.Printf("[Realtime] Unsubscribed from %d feeds", len(subs))
	}
}

// Active reports whether table has a live subscription.
func (h *Hub) Active(table string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.subs[table]
	return ok
}

// ActiveCount returns the number of live subscriptions.
func (h *Hub) ActiveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) run(sub *subscription) {
	for event := range sub.feed.Events() {
		if sub.isStopped() {
			return
		}
		if h.cache != nil {
			h.cache.Invalidate(sub.table)
		}
		ev := event
		time.AfterFunc(h.delay, func() {
			if sub.isStopped() {
				return
			}
			sub.handler(ev)
		})
	}

	if sub.isStopped() {
		return
	}
	// The transport gave up; drop the entry so a later Subscribe starts over.
	log.Printf("[Realtime] %s feed closed unexpectedly", sub.table)
	h.mu.Lock()
	if h.subs[sub.table] == sub {
		delete(h.subs, sub.table)
	}
	h.mu.Unlock()
	sub.stop()
}
