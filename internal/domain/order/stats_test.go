package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	orders := []Summary{
		{TotalAmount: amount("100"), CreatedAt: now.AddDate(0, 0, -40)},
		{TotalAmount: amount("50.5"), CreatedAt: now.AddDate(0, 0, -2)},
		{TotalAmount: nil, CreatedAt: now.AddDate(0, 0, -1)},
	}

	stats := ComputeStats(orders, 7, now)

	assert.True(t, stats.TotalSales.Equal(decimal.RequireFromString("150.5")))
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, 2, stats.RecentOrdersCount)
	assert.Equal(t, 2, stats.NewCustomers)
	assert.Equal(t, 7, stats.TotalProducts)
}

func TestComputeStats_CutoffIsInclusive(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	orders := []Summary{{TotalAmount: amount("1"), CreatedAt: now.AddDate(0, 0, -30)}}

	stats := ComputeStats(orders, 0, now)

	assert.Equal(t, 1, stats.RecentOrdersCount)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil, 0, time.Now())

	assert.True(t, stats.TotalSales.IsZero())
	assert.Equal(t, Stats{TotalSales: decimal.Zero}, stats)
}
