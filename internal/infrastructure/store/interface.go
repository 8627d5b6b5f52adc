package store

import (
	"context"

	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
)

// Backend is the hosted data capability behind the gateway. Every method
// performs one round-trip and returns errors classified with Classify.
type Backend interface {
	ListProducts(ctx context.Context, limit int) ([]product.Product, error)
	GetProduct(ctx context.Context, id string) (*product.Product, error)
	CountProducts(ctx context.Context) (int, error)
	InsertProduct(ctx context.Context, f product.Fields) (*product.Product, error)
	UpdateProduct(ctx context.Context, id string, f product.Fields) (*product.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]category.Category, error)
	ListRootCategories(ctx context.Context) ([]category.Category, error)
	ListSubcategories(ctx context.Context, parentID string) ([]category.Category, error)
	GetCategory(ctx context.Context, id string) (*category.Category, error)
	InsertCategory(ctx context.Context, f category.Fields) (*category.Category, error)
	UpdateCategory(ctx context.Context, id string, f category.Fields) (*category.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListOrders(ctx context.Context) ([]order.Order, error)
	ListOrderSummaries(ctx context.Context) ([]order.Summary, error)
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	InsertOrder(ctx context.Context, d order.Draft) (*order.Order, error)
	UpdateOrder(ctx context.Context, id string, u order.Update) (*order.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// Publisher forwards change events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
