// Package query is the read side used by the storefront and the admin:
// list reads go through the cache and degrade instead of failing.
package query

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/example/meubles-dor/internal/cache"
	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/shopspring/decimal"
)

// Reader is the part of the gateway the read side needs beyond the cache.
type Reader interface {
	GetProduct(ctx context.Context, id string) (*product.Product, error)
	ListRootCategoriesWithChildren(ctx context.Context) ([]category.Node, error)
	ListSubcategories(ctx context.Context, parentID string) ([]category.Category, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	ComputeDashboardStats(ctx context.Context) (order.Stats, error)
}

type Handler struct {
	gw    Reader
	cache *cache.Cache
	now   func() time.Time
}

func NewHandler(gw Reader, c *cache.Cache) *Handler {
	return &Handler{gw: gw, cache: c, now: time.Now}
}

// Products
func (h *Handler) ListProducts(ctx context.Context) []product.Product {
	return h.cache.Products(ctx)
}

func (h *Handler) SearchProducts(ctx context.Context, f product.Filter) []product.Product {
	return product.Apply(h.cache.Products(ctx), f)
}

// ListProductViews returns the catalog decorated for display.
func (h *Handler) ListProductViews(ctx context.Context, f product.Filter) []ProductView {
	products := h.SearchProducts(ctx, f)
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, NewProductView(p))
	}
	return views
}

// GetProduct propagates every failure, including not found.
func (h *Handler) GetProduct(ctx context.Context, id string) (*ProductView, error) {
	p, err := h.gw.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewProductView(*p)
	return &view, nil
}

// Categories
func (h *Handler) ListCategories(ctx context.Context) []category.Category {
	return h.cache.Categories(ctx)
}

// CategoryTree returns root categories with their children, or an empty
// tree when the roots cannot be read.
func (h *Handler) CategoryTree(ctx context.Context) []category.Node {
	tree, err := h.gw.ListRootCategoriesWithChildren(ctx)
	if err != nil {
		log.Printf("[Query] Error reading category tree: %v", err)
		return []category.Node{}
	}
	return tree
}

func (h *Handler) Subcategories(ctx context.Context, parentID string) []category.Category {
	subs, err := h.gw.ListSubcategories(ctx, parentID)
	if err != nil {
		log.Printf("[Query] Error reading subcategories of %s: %v", parentID, err)
		return []category.Category{}
	}
	return subs
}

// Orders
func (h *Handler) ListOrders(ctx context.Context) []order.Order {
	orders, err := h.gw.ListOrders(ctx)
	if err != nil {
		log.Printf("[Query] Error listing orders: %v", err)
		return []order.Order{}
	}
	return orders
}

func (h *Handler) FilterOrders(ctx context.Context, f order.Filter) []order.Order {
	return order.Apply(h.ListOrders(ctx), f, h.now())
}

// OrdersByDay groups filtered orders by day, most recent day first.
func (h *Handler) OrdersByDay(ctx context.Context, f order.Filter) []OrderDay {
	groups := order.GroupByDay(h.FilterOrders(ctx, f), h.now().Location())
	days := make([]OrderDay, 0, len(groups))
	for day, orders := range groups {
		days = append(days, OrderDay{Day: day, Orders: orders})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day > days[j].Day })
	return days
}

func (h *Handler) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return h.gw.GetOrder(ctx, id)
}

// DashboardStats returns zeros when the stats cannot be computed.
func (h *Handler) DashboardStats(ctx context.Context) order.Stats {
	stats, err := h.gw.ComputeDashboardStats(ctx)
	if err != nil {
		log.Printf("[Query] Error computing dashboard stats: %v", err)
		return order.Stats{TotalSales: decimal.Zero}
	}
	return stats
}
