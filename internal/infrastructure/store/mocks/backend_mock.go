package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/google/uuid"
)

// MockBackend is an in-memory store.Backend for testing. Every method
// records a call; FailOn makes a method return an error until cleared.
type MockBackend struct {
	mu         sync.Mutex
	products   map[string]product.Product
	categories map[string]category.Category
	orders     map[string]order.Order

	calls       map[string]int
	failures    map[string]error
	subFailures map[string]error
	clock       time.Time

	// ProductCount overrides CountProducts when non-negative.
	ProductCount int
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		products:     make(map[string]product.Product),
		categories:   make(map[string]category.Category),
		orders:       make(map[string]order.Order),
		calls:        make(map[string]int),
		failures:     make(map[string]error),
		subFailures:  make(map[string]error),
		clock:        time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		ProductCount: -1,
	}
}

// FailOn makes method return err. A nil err clears the failure.
func (m *MockBackend) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// FailSubcategoriesOf makes ListSubcategories fail for one parent only.
func (m *MockBackend) FailSubcategoriesOf(parentID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subFailures[parentID] = err
}

// CallCount returns how many times method was invoked.
func (m *MockBackend) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// ResetCalls clears recorded calls.
func (m *MockBackend) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

// SeedProduct stores p as is, keeping its ID and CreatedAt.
func (m *MockBackend) SeedProduct(p product.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// SeedCategory stores c as is.
func (m *MockBackend) SeedCategory(c category.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
}

// SeedOrder stores o as is.
func (m *MockBackend) SeedOrder(o order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

// record must be called with mu held.
func (m *MockBackend) record(method string) error {
	m.calls[method]++
	return m.failures[method]
}

// tick must be called with mu held; each call returns a later instant.
func (m *MockBackend) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", store.ErrNotFound, kind, id)
}

// ============================================
// Products
// ============================================

func (m *MockBackend) ListProducts(ctx context.Context, limit int) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListProducts"); err != nil {
		return nil, err
	}

	out := make([]product.Product, 0, len(m.products))
	for _, p := range m.products {
		p.Category = nil
		p.ImageURLs = append([]string{}, p.ImageURLs...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockBackend) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetProduct"); err != nil {
		return nil, err
	}

	p, ok := m.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	p.ImageURLs = append([]string{}, p.ImageURLs...)
	if p.CategoryID != nil {
		if c, ok := m.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	return &p, nil
}

func (m *MockBackend) CountProducts(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CountProducts"); err != nil {
		return 0, err
	}
	if m.ProductCount >= 0 {
		return m.ProductCount, nil
	}
	return len(m.products), nil
}

func (m *MockBackend) InsertProduct(ctx context.Context, f product.Fields) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("InsertProduct"); err != nil {
		return nil, err
	}

	p := product.Product{ID: uuid.New().String(), CreatedAt: m.tick()}
	setProductFields(&p, f)
	m.products[p.ID] = p
	return &p, nil
}

func (m *MockBackend) UpdateProduct(ctx context.Context, id string, f product.Fields) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateProduct"); err != nil {
		return nil, err
	}

	p, ok := m.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	setProductFields(&p, f)
	m.products[id] = p
	return &p, nil
}

func (m *MockBackend) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteProduct"); err != nil {
		return err
	}
	if _, ok := m.products[id]; !ok {
		return notFound("product", id)
	}
	delete(m.products, id)
	return nil
}

func setProductFields(p *product.Product, f product.Fields) {
	p.Name = f.Name
	p.Description = f.Description
	p.Price = f.Price
	p.OldPrice = f.OldPrice
	p.DeliveryPrice = f.DeliveryPrice
	p.Stock = f.Stock
	p.ImageURLs = append([]string{}, f.ImageURLs...)
	p.CategoryID = f.CategoryID
}

// ============================================
// Categories
// ============================================

func (m *MockBackend) sortedCategories(keep func(category.Category) bool) []category.Category {
	out := make([]category.Category, 0)
	for _, c := range m.categories {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *MockBackend) ListCategories(ctx context.Context) ([]category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListCategories"); err != nil {
		return nil, err
	}
	return m.sortedCategories(func(category.Category) bool { return true }), nil
}

func (m *MockBackend) ListRootCategories(ctx context.Context) ([]category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListRootCategories"); err != nil {
		return nil, err
	}
	return m.sortedCategories(category.Category.IsRoot), nil
}

func (m *MockBackend) ListSubcategories(ctx context.Context, parentID string) ([]category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListSubcategories"); err != nil {
		return nil, err
	}
	if err := m.subFailures[parentID]; err != nil {
		return nil, err
	}
	return m.sortedCategories(func(c category.Category) bool {
		return c.ParentID != nil && *c.ParentID == parentID
	}), nil
}

func (m *MockBackend) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetCategory"); err != nil {
		return nil, err
	}
	c, ok := m.categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return &c, nil
}

func (m *MockBackend) InsertCategory(ctx context.Context, f category.Fields) (*category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("InsertCategory"); err != nil {
		return nil, err
	}
	c := category.Category{ID: uuid.New().String(), Name: f.Name, ParentID: f.ParentID}
	m.categories[c.ID] = c
	return &c, nil
}

func (m *MockBackend) UpdateCategory(ctx context.Context, id string, f category.Fields) (*category.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateCategory"); err != nil {
		return nil, err
	}
	if _, ok := m.categories[id]; !ok {
		return nil, notFound("category", id)
	}
	c := category.Category{ID: id, Name: f.Name, ParentID: f.ParentID}
	m.categories[id] = c
	return &c, nil
}

func (m *MockBackend) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteCategory"); err != nil {
		return err
	}
	if _, ok := m.categories[id]; !ok {
		return notFound("category", id)
	}
	delete(m.categories, id)
	return nil
}

// ============================================
// Orders
// ============================================

func (m *MockBackend) ListOrders(ctx context.Context) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListOrders"); err != nil {
		return nil, err
	}
	out := make([]order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockBackend) ListOrderSummaries(ctx context.Context) ([]order.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListOrderSummaries"); err != nil {
		return nil, err
	}
	out := make([]order.Summary, 0, len(m.orders))
	for _, o := range m.orders {
		amount := o.TotalAmount
		out = append(out, order.Summary{TotalAmount: &amount, CreatedAt: o.CreatedAt, Status: o.Status})
	}
	return out, nil
}

func (m *MockBackend) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetOrder"); err != nil {
		return nil, err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	return &o, nil
}

func (m *MockBackend) InsertOrder(ctx context.Context, d order.Draft) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("InsertOrder"); err != nil {
		return nil, err
	}
	o := order.Order{
		ID:              uuid.New().String(),
		CustomerDetails: d.CustomerDetails,
		TotalAmount:     d.TotalAmount,
		Status:          d.Status,
		FormData:        d.FormData,
		CreatedAt:       m.tick(),
	}
	if o.Status == "" {
		o.Status = order.StatusNew
	}
	m.orders[o.ID] = o
	return &o, nil
}

func (m *MockBackend) UpdateOrder(ctx context.Context, id string, u order.Update) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateOrder"); err != nil {
		return nil, err
	}
	if u.Empty() {
		return nil, fmt.Errorf("%w: %w", store.ErrValidationRejected, order.ErrEmptyUpdate)
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	o = o.Apply(u)
	m.orders[id] = o
	return &o, nil
}

func (m *MockBackend) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DeleteOrder"); err != nil {
		return err
	}
	if _, ok := m.orders[id]; !ok {
		return notFound("order", id)
	}
	delete(m.orders, id)
	return nil
}
