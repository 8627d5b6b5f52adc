// Package cache memoizes the full product and category lists in front of the
// gateway.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/example/meubles-dor/internal/infrastructure/store"
)

// DefaultTTL bounds how long a cached list is served without refetching.
const DefaultTTL = 5 * time.Minute

// Lister is the read side the cache sits in front of.
type Lister interface {
	ListProducts(ctx context.Context) ([]product.Product, error)
	ListCategories(ctx context.Context) ([]category.Category, error)
}

// Cache owns the two cached slots. Safe for concurrent use.
type Cache struct {
	products   *Slot[product.Product]
	categories *Slot[category.Category]
}

func New(source Lister, ttl time.Duration) *Cache {
	return NewWithClock(source, ttl, time.Now)
}

func NewWithClock(source Lister, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		products:   NewSlot("products", ttl, now, source.ListProducts),
		categories: NewSlot("categories", ttl, now, source.ListCategories),
	}
}

func (c *Cache) Products(ctx context.Context) []product.Product {
	return c.products.Get(ctx)
}

func (c *Cache) Categories(ctx context.Context) []category.Category {
	return c.categories.Get(ctx)
}

func (c *Cache) InvalidateProducts() {
	c.products.Invalidate()
}

func (c *Cache) InvalidateCategories() {
	c.categories.Invalidate()
}

// Clear drops both slots.
func (c *Cache) Clear() {
	c.products.Invalidate()
	c.categories.Invalidate()
	log.Printf("[Cache] Cleared")
}

// Invalidate drops the slot backing table. Tables without a slot are
// ignored.
func (c *Cache) Invalidate(table string) {
	switch table {
	case store.TableProducts:
		c.InvalidateProducts()
	case store.TableCategories:
		c.InvalidateCategories()
	}
}
