package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecentWindowDays is the trailing window counted as recent on the dashboard.
const RecentWindowDays = 30

// Summary is the slice of an order the dashboard aggregates. TotalAmount is
// nil when the stored amount is missing.
type Summary struct {
	TotalAmount *decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time        `json:"created_at"`
	Status      Status           `json:"status"`
}

type Stats struct {
	TotalSales        decimal.Decimal `json:"totalSales"`
	TotalOrders       int             `json:"totalOrders"`
	NewCustomers      int             `json:"newCustomers"`
	TotalProducts     int             `json:"totalProducts"`
	RecentOrdersCount int             `json:"recentOrdersCount"`
}

// ComputeStats aggregates order summaries as of now. A missing amount counts
// as zero; an order is recent when created within the trailing window.
func ComputeStats(orders []Summary, productCount int, now time.Time) Stats {
	cutoff := now.AddDate(0, 0, -RecentWindowDays)

	stats := Stats{
		TotalSales:    decimal.Zero,
		TotalOrders:   len(orders),
		TotalProducts: productCount,
	}
	for _, o := range orders {
		if o.TotalAmount != nil {
			stats.TotalSales = stats.TotalSales.Add(*o.TotalAmount)
		}
		if !o.CreatedAt.Before(cutoff) {
			stats.RecentOrdersCount++
		}
	}
	stats.NewCustomers = stats.RecentOrdersCount
	return stats
}
