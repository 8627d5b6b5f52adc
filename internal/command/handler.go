// Package command is the write side: mutations go straight to the gateway,
// and a successful mutation drops the matching cached list.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/example/meubles-dor/internal/cache"
	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/example/meubles-dor/internal/infrastructure/store"
)

// ErrInvalid marks a command rejected before reaching the backend.
var ErrInvalid = errors.New("invalid command")

// ErrParentNotFound is returned when a category names a missing parent.
var ErrParentNotFound = errors.New("parent category not found")

// ErrHasSubcategories is returned when a category with children is moved
// under another category.
var ErrHasSubcategories = errors.New("category with subcategories cannot become a subcategory")

// Writer is the part of the gateway the write side needs.
type Writer interface {
	GetProduct(ctx context.Context, id string) (*product.Product, error)
	CreateProduct(ctx context.Context, f product.Fields) (*product.Product, error)
	UpdateProduct(ctx context.Context, id string, f product.Fields) (*product.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	UploadProductImage(ctx context.Context, productID, filename string, r io.Reader, size int64, contentType string) (string, error)

	GetCategory(ctx context.Context, id string) (*category.Category, error)
	ListSubcategories(ctx context.Context, parentID string) ([]category.Category, error)
	CreateCategory(ctx context.Context, f category.Fields) (*category.Category, error)
	UpdateCategory(ctx context.Context, id string, f category.Fields) (*category.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	CreateOrder(ctx context.Context, d order.Draft) (*order.Order, error)
	UpdateOrder(ctx context.Context, id string, u order.Update) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*order.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// Notifier announces a placed order.
type Notifier interface {
	NotifyOrder(ctx context.Context, o *order.Order) error
}

type Handler struct {
	gw       Writer
	cache    *cache.Cache
	notifier Notifier
}

// NewHandler builds a Handler. notifier may be nil.
func NewHandler(gw Writer, c *cache.Cache, notifier Notifier) *Handler {
	return &Handler{gw: gw, cache: c, notifier: notifier}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}

// ============================================
// Products
// ============================================

func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	if err := cmd.Validate(); err != nil {
		return nil, invalid(err)
	}
	p, err := h.gw.CreateProduct(ctx, cmd.Fields)
	if err != nil {
		return nil, err
	}
	h.cache.InvalidateProducts()
	return p, nil
}

func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*product.Product, error) {
	if err := cmd.Validate(); err != nil {
		return nil, invalid(err)
	}
	p, err := h.gw.UpdateProduct(ctx, cmd.ProductID, cmd.Fields)
	if err != nil {
		return nil, err
	}
	h.cache.InvalidateProducts()
	return p, nil
}

func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	if err := h.gw.DeleteProduct(ctx, cmd.ProductID); err != nil {
		return err
	}
	h.cache.InvalidateProducts()
	return nil
}

// UploadProductImage stores the image and returns its URL. With Attach set
// the URL is also appended to the product's image list.
func (h *Handler) UploadProductImage(ctx context.Context, cmd UploadProductImage) (string, error) {
	var p *product.Product
	if cmd.Attach {
		// 1. Make sure the product exists before storing anything
		var err error
		if p, err = h.gw.GetProduct(ctx, cmd.ProductID); err != nil {
			return "", err
		}
	}

	// 2. Store the blob
	url, err := h.gw.UploadProductImage(ctx, cmd.ProductID, cmd.Filename, cmd.Body, cmd.Size, cmd.ContentType)
	if err != nil {
		return "", err
	}
	if !cmd.Attach {
		return url, nil
	}

	// 3. Append to the product's images, keeping their order
	fields := p.Fields()
	fields.ImageURLs = append(append([]string{}, fields.ImageURLs...), url)
	if _, err := h.gw.UpdateProduct(ctx, cmd.ProductID, fields); err != nil {
		return "", err
	}
	h.cache.InvalidateProducts()
	return url, nil
}

// ============================================
// Categories
// ============================================

// checkParent enforces the two-level tree for category id (empty when new).
func (h *Handler) checkParent(ctx context.Context, id string, parentID *string) error {
	if parentID == nil || *parentID == "" {
		return nil
	}
	parent, err := h.gw.GetCategory(ctx, *parentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalid(ErrParentNotFound)
		}
		return err
	}
	if err := category.CheckParent(id, *parent); err != nil {
		return invalid(err)
	}
	if id == "" {
		return nil
	}

	children, err := h.gw.ListSubcategories(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return invalid(ErrHasSubcategories)
	}
	return nil
}

func (h *Handler) CreateCategory(ctx context.Context, cmd CreateCategory) (*category.Category, error) {
	if err := cmd.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := h.checkParent(ctx, "", cmd.ParentID); err != nil {
		return nil, err
	}
	c, err := h.gw.CreateCategory(ctx, cmd.Fields)
	if err != nil {
		return nil, err
	}
	h.cache.InvalidateCategories()
	return c, nil
}

func (h *Handler) UpdateCategory(ctx context.Context, cmd UpdateCategory) (*category.Category, error) {
	if err := cmd.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := h.checkParent(ctx, cmd.CategoryID, cmd.ParentID); err != nil {
		return nil, err
	}
	c, err := h.gw.UpdateCategory(ctx, cmd.CategoryID, cmd.Fields)
	if err != nil {
		return nil, err
	}
	h.cache.InvalidateCategories()
	return c, nil
}

// DeleteCategory also drops the product cache, since products lose their
// category reference.
func (h *Handler) DeleteCategory(ctx context.Context, cmd DeleteCategory) error {
	if err := h.gw.DeleteCategory(ctx, cmd.CategoryID); err != nil {
		return err
	}
	h.cache.InvalidateCategories()
	h.cache.InvalidateProducts()
	return nil
}

// ============================================
// Orders
// ============================================

// PlaceOrder prices a single-product checkout from the live product, stores
// the order and then notifies. The order is durable before the notifier runs,
// so a notification failure is logged and does not fail the checkout.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	if err := cmd.Customer.Validate(); err != nil {
		return nil, invalid(err)
	}
	if cmd.Quantity < 1 {
		return nil, invalid(order.ErrInvalidQuantity)
	}

	// 1. Read the product for current price and delivery fee
	p, err := h.gw.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	// 2. Snapshot it into the order
	draft, err := order.NewDraft(*p, cmd.Quantity, cmd.Customer)
	if err != nil {
		return nil, invalid(err)
	}

	// 3. Store
	o, err := h.gw.CreateOrder(ctx, draft)
	if err != nil {
		return nil, err
	}

	// 4. Notify
	if h.notifier != nil {
		if err := h.notifier.NotifyOrder(ctx, o); err != nil {
			log.Printf("[Command] Order %s placed but notification failed: %v", o.ID, err)
		}
	}
	return o, nil
}

func (h *Handler) UpdateOrder(ctx context.Context, cmd UpdateOrder) (*order.Order, error) {
	if cmd.Update.Empty() {
		return nil, invalid(order.ErrEmptyUpdate)
	}
	if cmd.Status != nil && !cmd.Status.Valid() {
		return nil, invalid(fmt.Errorf("%w: %q", order.ErrInvalidStatus, *cmd.Status))
	}
	if cmd.CustomerDetails != nil {
		if err := cmd.CustomerDetails.Validate(); err != nil {
			return nil, invalid(err)
		}
	}
	if t := cmd.TotalAmount; t != nil && (t.IsNegative() || !product.FitsScale(*t)) {
		return nil, invalid(order.ErrInvalidAmount)
	}
	return h.gw.UpdateOrder(ctx, cmd.OrderID, cmd.Update)
}

func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (*order.Order, error) {
	if !cmd.Status.Valid() {
		return nil, invalid(fmt.Errorf("%w: %q", order.ErrInvalidStatus, cmd.Status))
	}
	return h.gw.UpdateOrderStatus(ctx, cmd.OrderID, cmd.Status)
}

func (h *Handler) DeleteOrder(ctx context.Context, cmd DeleteOrder) error {
	return h.gw.DeleteOrder(ctx, cmd.OrderID)
}
