package realtime

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/meubles-dor/internal/cache"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/example/meubles-dor/internal/gateway"
	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/example/meubles-dor/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDelay = 20 * time.Millisecond

type recorder struct {
	mu     sync.Mutex
	events []store.ChangeEvent
}

func (r *recorder) handle(ev store.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) at(i int) store.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[i]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type testEnv struct {
	hub     *Hub
	source  *mocks.MockSource
	backend *mocks.MockBackend
	cache   *cache.Cache
}

func newTestEnv() testEnv {
	backend := mocks.NewMockBackend()
	source := mocks.NewMockSource()
	gw := gateway.New(backend, nil, source)
	c := cache.New(gw, cache.DefaultTTL)
	return testEnv{
		hub:     NewHub(gw, c, testDelay),
		source:  source,
		backend: backend,
		cache:   c,
	}
}

// ============================================
// Subscription Table Tests
// ============================================

func TestHub_UnsubscribeAll_NoSubscriptions(t *testing.T) {
	env := newTestEnv()

	assert.NotPanics(t, env.hub.UnsubscribeAll)
	assert.Equal(t, 0, env.hub.ActiveCount())
}

func TestHub_SubscribeTwice_KeepsOneFeed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	rec := &recorder{}

	require.NoError(t, env.hub.SubscribeToProducts(ctx, rec.handle))
	require.NoError(t, env.hub.SubscribeToProducts(ctx, rec.handle))

	feeds := env.source.Opened(store.TableProducts)
	require.Len(t, feeds, 2)
	assert.True(t, feeds[0].Closed())
	assert.False(t, feeds[1].Closed())
	assert.Equal(t, 1, env.hub.ActiveCount())
	assert.True(t, env.hub.Active(store.TableProducts))
}

func TestHub_UnsubscribeAll_ClosesEachFeedOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	rec := &recorder{}
	require.NoError(t, env.hub.SubscribeToProducts(ctx, rec.handle))
	require.NoError(t, env.hub.SubscribeToCategories(ctx, rec.handle))
	require.NoError(t, env.hub.SubscribeToOrders(ctx, rec.handle))

	env.hub.UnsubscribeAll()
	env.hub.UnsubscribeAll()

	for _, table := range store.Tables {
		f := env.source.Latest(table)
		require.NotNil(t, f)
		assert.Equal(t, 1, f.CloseCalls(), table)
	}
	assert.Equal(t, 0, env.hub.ActiveCount())

	require.NoError(t, env.hub.SubscribeToProducts(ctx, rec.handle))
	assert.Len(t, env.source.Opened(store.TableProducts), 2)
	assert.Equal(t, 1, env.hub.ActiveCount())
}

func TestHub_SubscribeFailure_TreatedAsAbsent(t *testing.T) {
	env := newTestEnv()
	env.source.FailOpen(store.TableOrders, fmt.Errorf("%w: refused", store.ErrBackendUnavailable))

	err := env.hub.SubscribeToOrders(context.Background(), func(store.ChangeEvent) {})

	assert.ErrorIs(t, err, store.ErrBackendUnavailable)
	assert.False(t, env.hub.Active(store.TableOrders))
	assert.NotPanics(t, env.hub.UnsubscribeAll)
}

func TestHub_SubscribeFailure_ClosesPreviousFeed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	require.NoError(t, env.hub.SubscribeToOrders(ctx, func(store.ChangeEvent) {}))
	first := env.source.Latest(store.TableOrders)

	env.source.FailOpen(store.TableOrders, fmt.Errorf("%w: refused", store.ErrBackendUnavailable))
	err := env.hub.SubscribeToOrders(ctx, func(store.ChangeEvent) {})

	assert.ErrorIs(t, err, store.ErrBackendUnavailable)
	assert.True(t, first.Closed())
	assert.False(t, env.hub.Active(store.TableOrders))
}

func TestHub_SlowOpenDoesNotBlockHub(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	require.NoError(t, env.hub.SubscribeToCategories(ctx, func(store.ChangeEvent) {}))

	release := env.source.Hold(store.TableProducts)
	defer release()
	done := make(chan error, 1)
	go func() {
		done <- env.hub.SubscribeToProducts(ctx, func(store.ChangeEvent) {})
	}()
	require.Eventually(t, func() bool {
		return env.source.Waiting(store.TableProducts) == 1
	}, time.Second, 5*time.Millisecond)

	unblocked := make(chan struct{})
	go func() {
		env.hub.Active(store.TableCategories)
		env.hub.UnsubscribeAll()
		close(unblocked)
	}()
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("hub lock held while a feed was opening")
	}
	assert.True(t, env.source.Latest(store.TableCategories).Closed())

	release()
	require.NoError(t, <-done)
	assert.True(t, env.hub.Active(store.TableProducts))
	assert.Equal(t, 1, env.hub.ActiveCount())
}

func TestHub_FeedDropRemovesSubscription(t *testing.T) {
	env := newTestEnv()
	require.NoError(t, env.hub.SubscribeToCategories(context.Background(), func(store.ChangeEvent) {}))

	env.source.Latest(store.TableCategories).Drop()

	assert.Eventually(t, func() bool {
		return !env.hub.Active(store.TableCategories)
	}, time.Second, 5*time.Millisecond)
}

// ============================================
// Delivery Tests
// ============================================

func TestHub_EventInvalidatesCacheThenNotifies(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.backend.SeedProduct(product.Product{ID: "p1", Name: "Console"})
	require.Len(t, env.cache.Products(ctx), 1)

	rec := &recorder{}
	require.NoError(t, env.hub.SubscribeToProducts(ctx, rec.handle))

	env.backend.SeedProduct(product.Product{ID: "p2", Name: "Vaisselier"})
	env.source.Latest(store.TableProducts).Emit(store.ChangeInsert, "p2")

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, env.cache.Products(ctx), 2)
	assert.Equal(t, 2, env.backend.CallCount("ListProducts"))
	assert.Equal(t, "p2", rec.at(0).RecordID)
}

func TestHub_HandlerRunsAfterDelay(t *testing.T) {
	env := newTestEnv()
	hub := NewHub(gateway.New(env.backend, nil, env.source), env.cache, 150*time.Millisecond)
	rec := &recorder{}
	require.NoError(t, hub.SubscribeToOrders(context.Background(), rec.handle))

	env.source.Latest(store.TableOrders).Emit(store.ChangeUpdate, "o1")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_BurstIsNotCoalesced(t *testing.T) {
	env := newTestEnv()
	rec := &recorder{}
	require.NoError(t, env.hub.SubscribeToCategories(context.Background(), rec.handle))

	f := env.source.Latest(store.TableCategories)
	for i := 0; i < 5; i++ {
		f.Emit(store.ChangeUpdate, fmt.Sprintf("c%d", i))
	}

	assert.Eventually(t, func() bool { return rec.count() == 5 }, time.Second, 5*time.Millisecond)
}

func TestHub_NoDeliveryAfterUnsubscribe(t *testing.T) {
	env := newTestEnv()
	hub := NewHub(gateway.New(env.backend, nil, env.source), env.cache, 50*time.Millisecond)
	rec := &recorder{}
	require.NoError(t, hub.SubscribeToProducts(context.Background(), rec.handle))

	env.source.Latest(store.TableProducts).Emit(store.ChangeDelete, "p1")
	time.Sleep(10 * time.Millisecond)
	hub.UnsubscribeAll()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, rec.count())
}

// ============================================
// Coalescer Tests
// ============================================

func TestCoalescer_CollapsesBurst(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := NewCoalescer(30*time.Millisecond, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		c.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestCoalescer_StopCancelsPending(t *testing.T) {
	fired := make(chan struct{}, 1)
	c := NewCoalescer(20*time.Millisecond, func() { fired <- struct{}{} })

	c.Trigger()
	c.Stop()
	c.Trigger()

	select {
	case <-fired:
		t.Fatal("coalescer fired after Stop")
	case <-time.After(80 * time.Millisecond):
	}
}
