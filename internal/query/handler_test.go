package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/meubles-dor/internal/cache"
	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/example/meubles-dor/internal/gateway"
	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/example/meubles-dor/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOutage = fmt.Errorf("%w: reset by peer", store.ErrBackendUnavailable)

func newTestQueryHandler() (*Handler, *mocks.MockBackend) {
	backend := mocks.NewMockBackend()
	gw := gateway.New(backend, nil, nil)
	handler := NewHandler(gw, cache.New(gw, cache.DefaultTTL))
	return handler, backend
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// ============================================
// Product Query Tests
// ============================================

func TestHandler_GetProduct_Found(t *testing.T) {
	handler, backend := newTestQueryHandler()
	backend.SeedProduct(product.Product{ID: "prod-1", Name: "Lampe", Price: *dec("60"), OldPrice: dec("80"), Stock: 2})

	view, err := handler.GetProduct(context.Background(), "prod-1")

	require.NoError(t, err)
	assert.Equal(t, "Lampe", view.Name)
	assert.Equal(t, 25, view.DiscountPercent)
	assert.True(t, view.InStock)
}

func TestHandler_GetProduct_NotFound(t *testing.T) {
	handler, _ := newTestQueryHandler()

	view, err := handler.GetProduct(context.Background(), "non-existent")

	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Nil(t, view)
}

func TestHandler_ListProducts_Cached(t *testing.T) {
	handler, backend := newTestQueryHandler()
	backend.SeedProduct(product.Product{ID: "prod-1", Name: "Product 1"})
	backend.SeedProduct(product.Product{ID: "prod-2", Name: "Product 2"})

	assert.Len(t, handler.ListProducts(context.Background()), 2)
	assert.Len(t, handler.ListProducts(context.Background()), 2)
	assert.Equal(t, 1, backend.CallCount("ListProducts"))
}

func TestHandler_ListProducts_FailureIsEmpty(t *testing.T) {
	handler, backend := newTestQueryHandler()
	backend.FailOn("ListProducts", errOutage)

	products := handler.ListProducts(context.Background())

	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestHandler_ListProductViews_Filtered(t *testing.T) {
	handler, backend := newTestQueryHandler()
	backend.SeedProduct(product.Product{ID: "a", Name: "Chaise", Stock: 0})
	backend.SeedProduct(product.Product{ID: "b", Name: "Chaise haute", Stock: 4})

	views := handler.ListProductViews(context.Background(), product.Filter{Search: "chaise", Stock: product.StockInStock})

	require.Len(t, views, 1)
	assert.Equal(t, "b", views[0].ID)
}

// ============================================
// Category Query Tests
// ============================================

func TestHandler_CategoryTree_RootFailureIsEmpty(t *testing.T) {
	handler, backend := newTestQueryHandler()
	backend.FailOn("ListRootCategories", errOutage)

	tree := handler.CategoryTree(context.Background())

	assert.NotNil(t, tree)
	assert.Empty(t, tree)
}

func TestHandler_Subcategories(t *testing.T) {
	handler, backend := newTestQueryHandler()
	root := "root"
	backend.SeedCategory(category.Category{ID: root, Name: "Bureau"})
	backend.SeedCategory(category.Category{ID: "s1", Name: "Chaises", ParentID: &root})

	subs := handler.Subcategories(context.Background(), root)
	require.Len(t, subs, 1)
	assert.Equal(t, "Chaises", subs[0].Name)

	backend.FailOn("ListSubcategories", errOutage)
	assert.Empty(t, handler.Subcategories(context.Background(), root))
}

// ============================================
// Order Query Tests
// ============================================

func TestHandler_ListOrders_FailureIsEmpty(t *testing.T) {
	handler, backend := newTestQueryHandler()
	backend.FailOn("ListOrders", errOutage)

	assert.Empty(t, handler.ListOrders(context.Background()))
}

func TestHandler_GetOrder_PropagatesError(t *testing.T) {
	handler, _ := newTestQueryHandler()

	_, err := handler.GetOrder(context.Background(), "missing")

	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHandler_FilterOrdersAndGroupByDay(t *testing.T) {
	handler, backend := newTestQueryHandler()
	now := time.Date(2026, 7, 10, 18, 0, 0, 0, time.UTC)
	handler.now = func() time.Time { return now }
	backend.SeedOrder(order.Order{ID: "o1", Status: order.StatusNew, CreatedAt: now.Add(-time.Hour)})
	backend.SeedOrder(order.Order{ID: "o2", Status: order.StatusNew, CreatedAt: now.AddDate(0, 0, -1)})
	backend.SeedOrder(order.Order{ID: "o3", Status: order.StatusCancelled, CreatedAt: now.AddDate(0, 0, -1)})

	days := handler.OrdersByDay(context.Background(), order.Filter{Status: order.StatusNew, Period: order.PeriodWeek})

	require.Len(t, days, 2)
	assert.Equal(t, "2026-07-10", days[0].Day)
	assert.Equal(t, "o1", days[0].Orders[0].ID)
	assert.Equal(t, "2026-07-09", days[1].Day)
	assert.Equal(t, "o2", days[1].Orders[0].ID)
}

// ============================================
// Dashboard Query Tests
// ============================================

func TestHandler_DashboardStats_FailureIsZero(t *testing.T) {
	handler, backend := newTestQueryHandler()
	backend.SeedOrder(order.Order{ID: "o1", TotalAmount: *dec("99")})
	backend.FailOn("ListOrderSummaries", errOutage)

	stats := handler.DashboardStats(context.Background())

	assert.True(t, stats.TotalSales.IsZero())
	assert.Zero(t, stats.TotalOrders)
	assert.Zero(t, stats.TotalProducts)
}
