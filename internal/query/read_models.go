package query

import (
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
)

// ProductView is a product as shown on the storefront.
type ProductView struct {
	product.Product
	DiscountPercent int  `json:"discount_percent"`
	InStock         bool `json:"in_stock"`
}

func NewProductView(p product.Product) ProductView {
	return ProductView{
		Product:         p,
		DiscountPercent: p.DiscountPercent(),
		InStock:         p.InStock(),
	}
}

// OrderDay is the admin order list grouped by calendar day.
type OrderDay struct {
	Day    string        `json:"day"`
	Orders []order.Order `json:"orders"`
}
