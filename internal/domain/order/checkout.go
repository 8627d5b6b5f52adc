package order

import (
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/shopspring/decimal"
)

// NewDraft prices a single-product checkout: subtotal is unit price times
// quantity, total adds the product's delivery fee.
func NewDraft(p product.Product, quantity int, customer CustomerDetails) (Draft, error) {
	if err := customer.Validate(); err != nil {
		return Draft{}, err
	}
	if quantity < 1 {
		return Draft{}, ErrInvalidQuantity
	}

	delivery := p.EffectiveDeliveryPrice()
	subtotal := p.Price.Mul(decimal.NewFromInt(int64(quantity)))

	return Draft{
		CustomerDetails: customer,
		TotalAmount:     subtotal.Add(delivery),
		Status:          StatusNew,
		FormData: FormData{
			ProductID:     p.ID,
			ProductName:   p.Name,
			Quantity:      quantity,
			UnitPrice:     p.Price,
			Subtotal:      subtotal,
			DeliveryPrice: delivery,
		},
	}, nil
}
