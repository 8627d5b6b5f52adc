package product

import (
	"errors"
	"strings"
	"time"

	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidName     = errors.New("product name is required")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidOldPrice = errors.New("old price must not be negative")
	ErrInvalidStock    = errors.New("stock must not be negative")
	ErrInvalidDelivery = errors.New("delivery price must not be negative")
	ErrAmountScale     = errors.New("amounts carry at most 2 decimal places")
)

// AmountScale is the number of decimal places stored for every amount.
const AmountScale = 2

// FitsScale reports whether d is stored without rounding.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(AmountScale))
}

// DefaultDeliveryPrice applies at checkout when a product carries no delivery price.
var DefaultDeliveryPrice = decimal.RequireFromString("7.00")

type Product struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Price         decimal.Decimal    `json:"price"`
	OldPrice      *decimal.Decimal   `json:"old_price"`
	DeliveryPrice *decimal.Decimal   `json:"delivery_price"`
	Stock         int                `json:"stock"`
	ImageURLs     []string           `json:"image_urls"`
	CategoryID    *string            `json:"category_id"`
	Category      *category.Category `json:"categories,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Fields are the writable attributes of a product. ImageURLs order is the
// display order and is stored as given.
type Fields struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OldPrice      *decimal.Decimal `json:"old_price"`
	DeliveryPrice *decimal.Decimal `json:"delivery_price"`
	Stock         int              `json:"stock"`
	ImageURLs     []string         `json:"image_urls"`
	CategoryID    *string          `json:"category_id"`
}

func (f Fields) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrInvalidName
	}
	if f.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if f.OldPrice != nil && f.OldPrice.IsNegative() {
		return ErrInvalidOldPrice
	}
	if f.DeliveryPrice != nil && f.DeliveryPrice.IsNegative() {
		return ErrInvalidDelivery
	}
	if f.Stock < 0 {
		return ErrInvalidStock
	}
	if !FitsScale(f.Price) ||
		(f.OldPrice != nil && !FitsScale(*f.OldPrice)) ||
		(f.DeliveryPrice != nil && !FitsScale(*f.DeliveryPrice)) {
		return ErrAmountScale
	}
	return nil
}

// Fields returns the writable part of p.
func (p Product) Fields() Fields {
	return Fields{
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OldPrice:      p.OldPrice,
		DeliveryPrice: p.DeliveryPrice,
		Stock:         p.Stock,
		ImageURLs:     p.ImageURLs,
		CategoryID:    p.CategoryID,
	}
}

// EffectiveDeliveryPrice is the delivery fee charged at checkout.
func (p Product) EffectiveDeliveryPrice() decimal.Decimal {
	if p.DeliveryPrice == nil {
		return DefaultDeliveryPrice
	}
	return *p.DeliveryPrice
}

// DiscountPercent returns the rounded discount against OldPrice, or 0.
func (p Product) DiscountPercent() int {
	if p.OldPrice == nil || !p.OldPrice.IsPositive() {
		return 0
	}
	pct := p.OldPrice.Sub(p.Price).Div(*p.OldPrice).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}
