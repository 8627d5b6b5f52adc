package command

import (
	"io"

	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
)

// Product Commands
type CreateProduct struct {
	product.Fields
}

type UpdateProduct struct {
	ProductID string `json:"product_id"`
	product.Fields
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

type UploadProductImage struct {
	ProductID   string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	// Attach appends the uploaded URL to the product's images.
	Attach bool
}

// Category Commands
type CreateCategory struct {
	category.Fields
}

type UpdateCategory struct {
	CategoryID string `json:"category_id"`
	category.Fields
}

type DeleteCategory struct {
	CategoryID string `json:"category_id"`
}

// Order Commands
type PlaceOrder struct {
	ProductID string                `json:"product_id"`
	Quantity  int                   `json:"quantity"`
	Customer  order.CustomerDetails `json:"customer_details"`
}

type UpdateOrder struct {
	OrderID string `json:"order_id"`
	order.Update
}

type UpdateOrderStatus struct {
	OrderID string       `json:"order_id"`
	Status  order.Status `json:"status"`
}

type DeleteOrder struct {
	OrderID string `json:"order_id"`
}
