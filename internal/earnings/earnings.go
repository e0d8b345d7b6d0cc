// Package earnings totals a courier's commission over delivered orders.
package earnings

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/platter/internal/order"
)

// CommissionRate is the courier's share of an order total.
var CommissionRate = decimal.RequireFromString("0.1")

// Summary holds commission for the rolling windows ending now.
type Summary struct {
	Today     decimal.Decimal `json:"today"`
	ThisWeek  decimal.Decimal `json:"thisWeek"`
	ThisMonth decimal.Decimal `json:"thisMonth"`
	Delivered int             `json:"delivered"`
}

// Window is [midnight of now minus days, now] in now's location.
func Window(now time.Time, days int) (start, end time.Time) {
	y, m, d := now.AddDate(0, 0, -days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now
}

// Commission is order total × CommissionRate.
func Commission(o order.Order) decimal.Decimal {
	return o.TotalPrice.Mul(CommissionRate)
}

// Compute sums commission for delivered orders with a completion time.
// Orders in any other status are ignored entirely.
func Compute(orders []order.Order, now time.Time) Summary {
	todayStart, _ := Window(now, 0)
	weekStart, _ := Window(now, 7)
	monthStart, _ := Window(now, 30)

	s := Summary{Today: decimal.Zero, ThisWeek: decimal.Zero, ThisMonth: decimal.Zero}
	for _, o := range orders {
		if o.Status != order.Delivered || o.CompletedAt == nil {
			continue
		}
		at := *o.CompletedAt
		if at.After(now) {
			continue
		}
		c := Commission(o)
		if !at.Before(todayStart) {
			s.Today = s.Today.Add(c)
		}
		if !at.Before(weekStart) {
			s.ThisWeek = s.ThisWeek.Add(c)
		}
		if !at.Before(monthStart) {
			s.ThisMonth = s.ThisMonth.Add(c)
			s.Delivered++
		}
	}
	return s
}
