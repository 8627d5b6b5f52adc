// Package gateway is the single point of contact with the storefront backend:
// one method per entity operation, plus change feeds and image upload.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/example/meubles-dor/internal/infrastructure/feed"
	"github.com/example/meubles-dor/internal/infrastructure/store"
	"golang.org/x/sync/errgroup"
)

// MaxProducts caps a product list read.
const MaxProducts = 1000

// ImageUploader stores a blob under path and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
}

type Gateway struct {
	backend store.Backend
	images  ImageUploader
	feeds   feed.Source
	now     func() time.Time
}

// New builds a Gateway. images and feeds may be nil: uploads then fail with
// ErrUpload and change feeds with ErrBackendUnavailable.
func New(backend store.Backend, images ImageUploader, feeds feed.Source) *Gateway {
	return &Gateway{
		backend: backend,
		images:  images,
		feeds:   feeds,
		now:     time.Now,
	}
}

// WithClock replaces the wall clock used for stats and upload paths.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// ============================================
// Products
// ============================================

// ListProducts returns up to MaxProducts products, newest first.
func (g *Gateway) ListProducts(ctx context.Context) ([]product.Product, error) {
	products, err := g.backend.ListProducts(ctx, MaxProducts)
	if err != nil {
		log.Printf("[Gateway] Error fetching products: %v", err)
		return nil, err
	}
	return products, nil
}

// GetProduct returns one product with its category resolved.
func (g *Gateway) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	p, err := g.backend.GetProduct(ctx, id)
	if err != nil {
		log.Printf("[Gateway] Error fetching product %s: %v", id, err)
		return nil, err
	}
	return p, nil
}

func (g *Gateway) CreateProduct(ctx context.Context, f product.Fields) (*product.Product, error) {
	p, err := g.backend.InsertProduct(ctx, f)
	if err != nil {
		log.Printf("[Gateway] Error creating product: %v", err)
		return nil, err
	}
	return p, nil
}

func (g *Gateway) UpdateProduct(ctx context.Context, id string, f product.Fields) (*product.Product, error) {
	p, err := g.backend.UpdateProduct(ctx, id, f)
	if err != nil {
		log.Printf("[Gateway] Error updating product %s: %v", id, err)
		return nil, err
	}
	return p, nil
}

func (g *Gateway) DeleteProduct(ctx context.Context, id string) error {
	if err := g.backend.DeleteProduct(ctx, id); err != nil {
		log.Printf("[Gateway] Error deleting product %s: %v", id, err)
		return err
	}
	return nil
}

// ============================================
// Categories
// ============================================

// ListCategories returns every category ordered by name.
func (g *Gateway) ListCategories(ctx context.Context) ([]category.Category, error) {
	categories, err := g.backend.ListCategories(ctx)
	if err != nil {
		log.Printf("[Gateway] Error fetching categories: %v", err)
		return nil, err
	}
	return categories, nil
}

// ListRootCategoriesWithChildren reads the root categories, then fetches the
// children of each root concurrently. A failed child fetch is logged and
// leaves that root with no subcategories; only a failed root read fails the
// call.
func (g *Gateway) ListRootCategoriesWithChildren(ctx context.Context) ([]category.Node, error) {
	roots, err := g.backend.ListRootCategories(ctx)
	if err != nil {
		log.Printf("[Gateway] Error fetching main categories: %v", err)
		return nil, err
	}

	nodes := make([]category.Node, len(roots))
	var eg errgroup.Group
	for i, root := range roots {
		nodes[i] = category.Node{Category: root, Subcategories: []category.Category{}}
		eg.Go(func() error {
			subs, err := g.backend.ListSubcategories(ctx, root.ID)
			if err != nil {
				log.Printf("[Gateway] Error fetching subcategories for %s: %v", root.Name, err)
				return nil
			}
			nodes[i].Subcategories = subs
			return nil
		})
	}
	_ = eg.Wait()

	return nodes, nil
}

// ListSubcategories returns the children of parentID ordered by name.
func (g *Gateway) ListSubcategories(ctx context.Context, parentID string) ([]category.Category, error) {
	subs, err := g.backend.ListSubcategories(ctx, parentID)
	if err != nil {
		log.Printf("[Gateway] Error fetching subcategories of %s: %v", parentID, err)
		return nil, err
	}
	return subs, nil
}

func (g *Gateway) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	c, err := g.backend.GetCategory(ctx, id)
	if err != nil {
		log.Printf("[Gateway] Error fetching category %s: %v", id, err)
		return nil, err
	}
	return c, nil
}

func (g *Gateway) CreateCategory(ctx context.Context, f category.Fields) (*category.Category, error) {
	c, err := g.backend.InsertCategory(ctx, f)
	if err != nil {
		log.Printf("[Gateway] Error creating category: %v", err)
		return nil, err
	}
	return c, nil
}

func (g *Gateway) UpdateCategory(ctx context.Context, id string, f category.Fields) (*category.Category, error) {
	c, err := g.backend.UpdateCategory(ctx, id, f)
	if err != nil {
		log.Printf("[Gateway] Error updating category %s: %v", id, err)
		return nil, err
	}
	return c, nil
}

func (g *Gateway) DeleteCategory(ctx context.Context, id string) error {
	if err := g.backend.DeleteCategory(ctx, id); err != nil {
		log.Printf("[Gateway] Error deleting category %s: %v", id, err)
		return err
	}
	return nil
}

// ============================================
// Orders
// ============================================

// ListOrders returns every order, newest first.
func (g *Gateway) ListOrders(ctx context.Context) ([]order.Order, error) {
	orders, err := g.backend.ListOrders(ctx)
	if err != nil {
		log.Printf("[Gateway] Error fetching orders: %v", err)
		return nil, err
	}
	return orders, nil
}

func (g *Gateway) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	o, err := g.backend.GetOrder(ctx, id)
	if err != nil {
		log.Printf("[Gateway] Error fetching order %s: %v", id, err)
		return nil, err
	}
	return o, nil
}

func (g *Gateway) CreateOrder(ctx context.Context, d order.Draft) (*order.Order, error) {
	o, err := g.backend.InsertOrder(ctx, d)
	if err != nil {
		log.Printf("[Gateway] Error creating order: %v", err)
		return nil, err
	}
	return o, nil
}

func (g *Gateway) UpdateOrder(ctx context.Context, id string, u order.Update) (*order.Order, error) {
	o, err := g.backend.UpdateOrder(ctx, id, u)
	if err != nil {
		log.Printf("[Gateway] Error updating order %s: %v", id, err)
		return nil, err
	}
	return o, nil
}

// UpdateOrderStatus writes the status field and nothing else.
func (g *Gateway) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", store.ErrValidationRejected, order.ErrInvalidStatus, status)
	}
	o, err := g.backend.UpdateOrder(ctx, id, order.StatusUpdate(status))
	if err != nil {
		log.Printf("[Gateway] Error updating status of order %s: %v", id, err)
		return nil, err
	}
	return o, nil
}

func (g *Gateway) DeleteOrder(ctx context.Context, id string) error {
	if err := g.backend.DeleteOrder(ctx, id); err != nil {
		log.Printf("[Gateway] Error deleting order %s: %v", id, err)
		return err
	}
	return nil
}

// ============================================
// Dashboard
// ============================================

// ComputeDashboardStats aggregates order amounts and recency against a
// product count, as of the moment of the call.
func (g *Gateway) ComputeDashboardStats(ctx context.Context) (order.Stats, error) {
	summaries, err := g.backend.ListOrderSummaries(ctx)
	if err != nil {
		log.Printf("[Gateway] Error fetching orders for stats: %v", err)
		return order.Stats{}, err
	}
	count, err := g.backend.CountProducts(ctx)
	if err != nil {
		log.Printf("[Gateway] Error counting products: %v", err)
		return order.Stats{}, err
	}
	return order.ComputeStats(summaries, count, g.now()), nil
}

// ============================================
// Images
// ============================================

// ProductImagePath is the object path for an image of productID uploaded at
// the given time: products/product-<id>-<unix millis>.<ext>, where ext is
// whatever follows the last dot of filename (all of it when there is none).
func ProductImagePath(productID, filename string, at time.Time) string {
	ext := filename[strings.LastIndex(filename, ".")+1:]
	return path.Join("products", fmt.Sprintf("product-%s-%d.%s", productID, at.UnixMilli(), ext))
}

// UploadProductImage stores the blob and returns its public URL.
func (g *Gateway) UploadProductImage(ctx context.Context, productID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if g.images == nil {
		return "", fmt.Errorf("%w: image storage not configured", store.ErrUpload)
	}

	objectPath := ProductImagePath(productID, filename, g.now())
	url, err := g.images.Upload(ctx, objectPath, r, size, contentType)
	if err != nil {
		log.Printf("[Gateway] Error uploading image %s: %v", objectPath, err)
		return "", fmt.Errorf("%w: %w", store.ErrUpload, err)
	}
	return url, nil
}

// ============================================
// Change feeds
// ============================================

// OpenChangeFeed opens the backend change feed for one table.
func (g *Gateway) OpenChangeFeed(ctx context.Context, table string) (feed.Feed, error) {
	if g.feeds == nil {
		return nil, fmt.Errorf("%w: change feeds not configured", store.ErrBackendUnavailable)
	}
	f, err := g.feeds.Open(ctx, table)
	if err != nil {
		log.Printf("[Gateway] Error opening %s change feed: %v", table, err)
		return nil, err
	}
	return f, nil
}
