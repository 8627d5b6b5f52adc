package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validCustomer() CustomerDetails {
	return CustomerDetails{FullName: "Amina Benali", PhoneNumber: "0612345678", Address: "12 rue des Lilas, Oran"}
}

// ============================================
// Status Tests
// ============================================

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// ============================================
// Checkout Tests
// ============================================

func TestNewDraft_DefaultDelivery(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Fauteuil", Price: dec("149.50")}

	draft, err := NewDraft(p, 2, validCustomer())

	require.NoError(t, err)
	assert.Equal(t, StatusNew, draft.Status)
	assert.True(t, draft.FormData.Subtotal.Equal(dec("299")))
	assert.True(t, draft.FormData.DeliveryPrice.Equal(dec("7")))
	assert.True(t, draft.TotalAmount.Equal(dec("306")))
	assert.Equal(t, "Fauteuil", draft.FormData.ProductName)
	assert.Equal(t, 2, draft.FormData.Quantity)
}

func TestNewDraft_ProductDelivery(t *testing.T) {
	free := decimal.Zero
	p := product.Product{ID: "p1", Name: "Tabouret", Price: dec("20"), DeliveryPrice: &free}

	draft, err := NewDraft(p, 1, validCustomer())

	require.NoError(t, err)
	assert.True(t, draft.TotalAmount.Equal(dec("20")))
}

func TestNewDraft_Rejects(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Tabouret", Price: dec("20")}

	_, err := NewDraft(p, 0, validCustomer())
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	c := validCustomer()
	c.PhoneNumber = ""
	_, err = NewDraft(p, 1, c)
	assert.ErrorIs(t, err, ErrMissingPhone)
}

func TestCustomerDetails_JSONKeys(t *testing.T) {
	raw, err := json.Marshal(validCustomer())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "fullName")
	assert.Contains(t, m, "phoneNumber")
	assert.Contains(t, m, "address")
	assert.NotContains(t, m, "email")
}

// ============================================
// Update Tests
// ============================================

func TestOrder_ApplyStatusOnly(t *testing.T) {
	o := Order{ID: "o1", Status: StatusNew, CustomerDetails: validCustomer(), TotalAmount: dec("10")}

	got := o.Apply(StatusUpdate(StatusShipped))

	assert.Equal(t, StatusShipped, got.Status)
	assert.Equal(t, o.CustomerDetails, got.CustomerDetails)
	assert.True(t, got.TotalAmount.Equal(dec("10")))
	assert.False(t, StatusUpdate(StatusShipped).Empty())
	assert.True(t, Update{}.Empty())
}

// ============================================
// Filter Tests
// ============================================

func TestApply_Filters(t *testing.T) {
	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	orders := []Order{
		{ID: "aaa", Status: StatusNew, CreatedAt: now.Add(-time.Hour), CustomerDetails: CustomerDetails{FullName: "Karim", PhoneNumber: "0550"}},
		{ID: "bbb", Status: StatusShipped, CreatedAt: now.AddDate(0, 0, -3), CustomerDetails: CustomerDetails{FullName: "Sofia", PhoneNumber: "0661"}},
		{ID: "ccc", Status: StatusNew, CreatedAt: now.AddDate(0, 0, -20), CustomerDetails: CustomerDetails{FullName: "karima", PhoneNumber: "0770"}},
		{ID: "ddd", Status: StatusDelivered, CreatedAt: now.AddDate(0, 0, -60), CustomerDetails: CustomerDetails{FullName: "Yacine", PhoneNumber: "0799"}},
	}

	ids := func(os []Order) []string {
		out := []string{}
		for _, o := range os {
			out = append(out, o.ID)
		}
		return out
	}

	assert.Equal(t, []string{"aaa", "ccc"}, ids(Apply(orders, Filter{Search: "KARIM"}, now)))
	assert.Equal(t, []string{"bbb"}, ids(Apply(orders, Filter{Search: "0661"}, now)))
	assert.Equal(t, []string{"ddd"}, ids(Apply(orders, Filter{Search: "ddd"}, now)))
	assert.Equal(t, []string{"aaa", "ccc"}, ids(Apply(orders, Filter{Status: StatusNew}, now)))
	assert.Equal(t, []string{"aaa"}, ids(Apply(orders, Filter{Period: PeriodToday}, now)))
	assert.Equal(t, []string{"aaa", "bbb"}, ids(Apply(orders, Filter{Period: PeriodWeek}, now)))
	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, ids(Apply(orders, Filter{Period: PeriodMonth}, now)))
	assert.Len(t, Apply(orders, Filter{Period: PeriodAll}, now), 4)
}

func TestGroupByDay(t *testing.T) {
	day := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	orders := []Order{
		{ID: "1", CreatedAt: day},
		{ID: "2", CreatedAt: day.Add(3 * time.Hour)},
		{ID: "3", CreatedAt: day.AddDate(0, 0, -1)},
	}

	groups := GroupByDay(orders, time.UTC)

	assert.Len(t, groups["2026-05-20"], 2)
	assert.Len(t, groups["2026-05-19"], 1)
}
