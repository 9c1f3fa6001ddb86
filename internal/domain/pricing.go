package domain

import "strings"

// Pricing rules. All amounts are in cents.
const (
	// ShippingFeeCents is the flat delivery fee below the free shipping
	// threshold.
	ShippingFeeCents int64 = 599

	// FreeShippingThresholdCents waives the delivery fee once the subtotal
	// reaches it. A subtotal of exactly the threshold ships free.
	FreeShippingThresholdCents int64 = 5000
)

// Promo is a discount rule applied to the cart subtotal.
type Promo struct {
	Code    string
	Percent int64
}

// promos holds the currently honored promo codes.
var promos = map[string]Promo{
	"FRESH10": {Code: "FRESH10", Percent: 10},
}

// LookupPromo resolves a promo code case-insensitively. It returns false for
// unknown codes.
func LookupPromo(code string) (Promo, bool) {
	p, ok := promos[strings.ToUpper(strings.TrimSpace(code))]
	return p, ok
}

// Discount returns the discount amount in cents for the given subtotal.
func (p Promo) Discount(subtotal int64) int64 {
	return subtotal * p.Percent / 100
}

// Totals is the fully derived price breakdown for a cart.
type Totals struct {
	ItemCount int   `json:"item_count"`
	Subtotal  int64 `json:"subtotal"`
	Shipping  int64 `json:"shipping"`
	Discount  int64 `json:"discount"`
	Total     int64 `json:"total"`
}

// ComputeTotals derives the price breakdown for a cart with an optional
// promo. An empty cart owes no shipping.
func ComputeTotals(c *Cart, promo *Promo) Totals {
	t := Totals{
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
	}

	if !c.IsEmpty() && t.Subtotal < FreeShippingThresholdCents {
		t.Shipping = ShippingFeeCents
	}

	if promo != nil {
		t.Discount = promo.Discount(t.Subtotal)
	}

	t.Total = t.Subtotal + t.Shipping - t.Discount
	return t
}
