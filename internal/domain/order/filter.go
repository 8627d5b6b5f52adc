package order

import (
	"strings"
	"time"
)

type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Filter narrows the admin order list.
type Filter struct {
	Search string
	Status Status
	Period Period
}

// Match reports whether o passes f at time now. Search matches the customer
// name case-insensitively, the phone number, or the order id.
func (f Filter) Match(o Order, now time.Time) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(o.CustomerDetails.FullName), q) &&
			!strings.Contains(o.CustomerDetails.PhoneNumber, f.Search) &&
			!strings.Contains(o.ID, f.Search) {
			return false
		}
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}

	switch f.Period {
	case PeriodToday:
		created := o.CreatedAt.In(now.Location())
		y1, m1, d1 := created.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case PeriodWeek:
		return !o.CreatedAt.Before(now.Add(-7 * 24 * time.Hour))
	case PeriodMonth:
		return !o.CreatedAt.Before(now.Add(-30 * 24 * time.Hour))
	}
	return true
}

// Apply returns the orders matching f, keeping their order.
func Apply(orders []Order, f Filter, now time.Time) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if f.Match(o, now) {
			out = append(out, o)
		}
	}
	return out
}

// GroupByDay buckets orders by their calendar day in loc, preserving order
// within each bucket. Keys are formatted as 2006-01-02.
func GroupByDay(orders []Order, loc *time.Location) map[string][]Order {
	groups := make(map[string][]Order)
	for _, o := range orders {
		day := o.CreatedAt.In(loc).Format("2006-01-02")
		groups[day] = append(groups[day], o)
	}
	return groups
}
