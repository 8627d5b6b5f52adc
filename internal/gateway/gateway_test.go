package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/example/meubles-dor/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOutage = fmt.Errorf("%w: connection refused", store.ErrBackendUnavailable)

type mockUploader struct {
	paths []string
	body  []byte
	err   error
}

func (m *mockUploader) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	m.paths = append(m.paths, path)
	if m.err != nil {
		return "", m.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.body = body
	return "https://cdn.example.com/product-images/" + path, nil
}

func newTestGateway() (*Gateway, *mocks.MockBackend, *mocks.MockSource, *mockUploader) {
	backend := mocks.NewMockBackend()
	source := mocks.NewMockSource()
	uploader := &mockUploader{}
	return New(backend, uploader, source), backend, source, uploader
}

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ============================================
// Product Tests
// ============================================

func TestGateway_CreateThenGetProduct_RoundTrip(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	ctx := context.Background()
	backend.SeedCategory(category.Category{ID: "salon", Name: "Salon"})
	old := dec("899.00")
	fields := product.Fields{
		Name:        "Canapé Velours",
		Description: "Trois places",
		Price:       dec("749.00"),
		OldPrice:    &old,
		Stock:       3,
		ImageURLs:   []string{"c.jpg", "a.jpg", "b.jpg"},
		CategoryID:  strPtr("salon"),
	}

	created, err := gw.CreateProduct(ctx, fields)
	require.NoError(t, err)

	got, err := gw.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, fields, got.Fields())
	assert.Equal(t, []string{"c.jpg", "a.jpg", "b.jpg"}, got.ImageURLs)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Salon", got.Category.Name)
}

func TestGateway_GetProduct_NotFound(t *testing.T) {
	gw, _, _, _ := newTestGateway()

	_, err := gw.GetProduct(context.Background(), "missing")

	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGateway_ListProducts_NewestFirstAndCapped(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxProducts+5; i++ {
		backend.SeedProduct(product.Product{
			ID:        fmt.Sprintf("p%04d", i),
			Name:      "x",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	products, err := gw.ListProducts(context.Background())

	require.NoError(t, err)
	assert.Len(t, products, MaxProducts)
	assert.Equal(t, fmt.Sprintf("p%04d", MaxProducts+4), products[0].ID)
}

func TestGateway_ListProducts_PropagatesError(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	backend.FailOn("ListProducts", errOutage)

	_, err := gw.ListProducts(context.Background())

	assert.ErrorIs(t, err, store.ErrBackendUnavailable)
}

func TestGateway_DeleteProduct_Missing(t *testing.T) {
	gw, _, _, _ := newTestGateway()

	err := gw.DeleteProduct(context.Background(), "nope")

	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ============================================
// Category Tree Tests
// ============================================

func seedTree(backend *mocks.MockBackend) {
	backend.SeedCategory(category.Category{ID: "chambre", Name: "Chambre"})
	backend.SeedCategory(category.Category{ID: "salon", Name: "Salon"})
	backend.SeedCategory(category.Category{ID: "lits", Name: "Lits", ParentID: strPtr("chambre")})
	backend.SeedCategory(category.Category{ID: "armoires", Name: "Armoires", ParentID: strPtr("chambre")})
	backend.SeedCategory(category.Category{ID: "canapes", Name: "Canapés", ParentID: strPtr("salon")})
}

func TestGateway_ListRootCategoriesWithChildren(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	seedTree(backend)

	tree, err := gw.ListRootCategoriesWithChildren(context.Background())

	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Chambre", tree[0].Name)
	require.Len(t, tree[0].Subcategories, 2)
	assert.Equal(t, "Armoires", tree[0].Subcategories[0].Name)
	assert.Equal(t, "Salon", tree[1].Name)
	assert.Len(t, tree[1].Subcategories, 1)
	assert.Equal(t, 2, backend.CallCount("ListSubcategories"))
}

func TestGateway_ListRootCategoriesWithChildren_PartialFailure(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	seedTree(backend)
	backend.FailSubcategoriesOf("chambre", errOutage)

	tree, err := gw.ListRootCategoriesWithChildren(context.Background())

	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "chambre", tree[0].ID)
	assert.NotNil(t, tree[0].Subcategories)
	assert.Empty(t, tree[0].Subcategories)
	assert.Len(t, tree[1].Subcategories, 1)
}

func TestGateway_ListRootCategoriesWithChildren_RootFailure(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	backend.FailOn("ListRootCategories", errOutage)

	_, err := gw.ListRootCategoriesWithChildren(context.Background())

	assert.ErrorIs(t, err, store.ErrBackendUnavailable)
	assert.Zero(t, backend.CallCount("ListSubcategories"))
}

// ============================================
// Order Tests
// ============================================

func TestGateway_UpdateOrderStatus_OnlyTouchesStatus(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	created := time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)
	original := order.Order{
		ID:              "o1",
		CustomerDetails: order.CustomerDetails{FullName: "Nadia", PhoneNumber: "0555", Address: "Alger"},
		TotalAmount:     dec("356.00"),
		Status:          order.StatusNew,
		FormData:        order.FormData{ProductID: "p1", ProductName: "Table", Quantity: 1, UnitPrice: dec("349"), Subtotal: dec("349"), DeliveryPrice: dec("7")},
		CreatedAt:       created,
	}
	backend.SeedOrder(original)

	updated, err := gw.UpdateOrderStatus(context.Background(), "o1", order.StatusShipped)

	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, updated.Status)

	stored, err := gw.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, stored.Status)
	assert.Equal(t, original.CustomerDetails, stored.CustomerDetails)
	assert.True(t, original.TotalAmount.Equal(stored.TotalAmount))
	assert.Equal(t, original.FormData, stored.FormData)
	assert.Equal(t, created, stored.CreatedAt)
}

func TestGateway_UpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	backend.SeedOrder(order.Order{ID: "o1", Status: order.StatusNew})

	_, err := gw.UpdateOrderStatus(context.Background(), "o1", order.Status("Perdue"))

	assert.ErrorIs(t, err, store.ErrValidationRejected)
	assert.ErrorIs(t, err, order.ErrInvalidStatus)
	assert.Zero(t, backend.CallCount("UpdateOrder"))
}

// ============================================
// Dashboard Stats Tests
// ============================================

func TestGateway_ComputeDashboardStats(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	gw.WithClock(func() time.Time { return now })
	backend.SeedOrder(order.Order{ID: "a", TotalAmount: dec("10.00"), CreatedAt: now.AddDate(0, 0, -40)})
	backend.SeedOrder(order.Order{ID: "b", TotalAmount: decimal.Zero, CreatedAt: now.AddDate(0, 0, -2)})
	backend.SeedOrder(order.Order{ID: "c", TotalAmount: dec("25.50"), CreatedAt: now})
	backend.ProductCount = 12

	stats, err := gw.ComputeDashboardStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalOrders)
	assert.True(t, stats.TotalSales.Equal(dec("35.50")), stats.TotalSales.String())
	assert.Equal(t, 2, stats.RecentOrdersCount)
	assert.Equal(t, 12, stats.TotalProducts)
}

func TestGateway_ComputeDashboardStats_CountFailure(t *testing.T) {
	gw, backend, _, _ := newTestGateway()
	backend.FailOn("CountProducts", errOutage)

	_, err := gw.ComputeDashboardStats(context.Background())

	assert.ErrorIs(t, err, store.ErrBackendUnavailable)
}

// ============================================
// Image Upload Tests
// ============================================

func TestProductImagePath(t *testing.T) {
	at := time.UnixMilli(1718000000123)

	assert.Equal(t, "products/product-p1-1718000000123.jpg", ProductImagePath("p1", "photo.final.jpg", at))
	assert.Equal(t, "products/product-p1-1718000000123.noext", ProductImagePath("p1", "noext", at))
}

func TestGateway_UploadProductImage(t *testing.T) {
	gw, _, _, uploader := newTestGateway()
	gw.WithClock(func() time.Time { return time.UnixMilli(1718000000000) })

	url, err := gw.UploadProductImage(context.Background(), "p1", "buffet.png", bytes.NewReader([]byte("img")), 3, "image/png")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/product-images/products/product-p1-1718000000000.png", url)
	assert.Equal(t, []byte("img"), uploader.body)
}

func TestGateway_UploadProductImage_Rejected(t *testing.T) {
	gw, _, _, uploader := newTestGateway()
	uploader.err = errors.New("access denied")

	_, err := gw.UploadProductImage(context.Background(), "p1", "a.jpg", bytes.NewReader(nil), 0, "image/jpeg")

	assert.ErrorIs(t, err, store.ErrUpload)
}

func TestGateway_UploadProductImage_NotConfigured(t *testing.T) {
	gw := New(mocks.NewMockBackend(), nil, nil)

	_, err := gw.UploadProductImage(context.Background(), "p1", "a.jpg", bytes.NewReader(nil), 0, "image/jpeg")

	assert.ErrorIs(t, err, store.ErrUpload)
}

// ============================================
// Change Feed Tests
// ============================================

func TestGateway_OpenChangeFeed(t *testing.T) {
	gw, _, source, _ := newTestGateway()

	f, err := gw.OpenChangeFeed(context.Background(), store.TableProducts)

	require.NoError(t, err)
	assert.Same(t, source.Latest(store.TableProducts), f)
}

func TestGateway_OpenChangeFeed_NotConfigured(t *testing.T) {
	gw := New(mocks.NewMockBackend(), nil, nil)

	f, err := gw.OpenChangeFeed(context.Background(), store.TableProducts)

	assert.ErrorIs(t, err, store.ErrBackendUnavailable)
	assert.Nil(t, f)
}

func TestGateway_OpenChangeFeed_Failure(t *testing.T) {
	gw, _, source, _ := newTestGateway()
	source.FailOpen(store.TableOrders, errOutage)

	f, err := gw.OpenChangeFeed(context.Background(), store.TableOrders)

	assert.Nil(t, f)
	assert.ErrorIs(t, err, store.ErrBackendUnavailable)
}
