package product

import "strings"

// LowStockThreshold is the highest stock level still reported as low.
const LowStockThreshold = 10

type StockFilter string

const (
	StockAll        StockFilter = "all"
	StockInStock    StockFilter = "inStock"
	StockOutOfStock StockFilter = "outOfStock"
	StockLow        StockFilter = "lowStock"
)

// Filter narrows the admin product list.
type Filter struct {
	Search     string
	CategoryID string
	Stock      StockFilter
}

func (f Filter) Match(p Product) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
		return false
	}
	if f.CategoryID != "" && (p.CategoryID == nil || *p.CategoryID != f.CategoryID) {
		return false
	}
	switch f.Stock {
	case StockInStock:
		return p.Stock > 0
	case StockOutOfStock:
		return p.Stock == 0
	case StockLow:
		return p.Stock > 0 && p.Stock <= LowStockThreshold
	}
	return true
}

// Apply returns the products matching f, keeping their order.
func Apply(products []Product, f Filter) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
