package cart

import (
	"math"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

const consultSuffix = " + envío"

func (s *Store) Totals() domain.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	return computeTotals(s.items, s.zone)
}

// TotalDisplay is the grand total as shown to the customer. With a
// to-consult zone only the subtotal is numeric.
func (s *Store) TotalDisplay() string {
	t := s.Totals()
	if t.ToConsult {
		return s.format.Format(t.Subtotal) + consultSuffix
	}
	return s.format.Format(t.Total)
}

func (s *Store) Format(amount int64) string {
	return s.format.Format(amount)
}

func computeTotals(items []domain.LineItem, zone *domain.DeliveryZone) domain.Totals {
	t, _ := sumTotals(items, zone)
	return t
}

// sumTotals adds the cart up. ok is false when an amount does not fit in an
// int64; the affected totals then saturate at math.MaxInt64.
func sumTotals(items []domain.LineItem, zone *domain.DeliveryZone) (domain.Totals, bool) {
	var t domain.Totals
	ok := true
	for _, it := range items {
		t.Count += it.Quantity
		line, fits := mulAmount(it.Price, it.Quantity)
		ok = ok && fits
		t.Subtotal, fits = addAmount(t.Subtotal, line)
		ok = ok && fits
	}
	if zone != nil {
		t.HasZone = true
		t.ToConsult = zone.ToConsult
		if !zone.ToConsult {
			t.Delivery = zone.Cost
		}
	}
	total, fits := addAmount(t.Subtotal, t.Delivery)
	t.Total = total
	return t, ok && fits
}

func mulAmount(amount int64, qty int) (int64, bool) {
	if amount <= 0 || qty <= 0 {
		return 0, true
	}
	if amount > math.MaxInt64/int64(qty) {
		return math.MaxInt64, false
	}
	return amount * int64(qty), true
}

func addAmount(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64, false
	}
	return a + b, true
}
