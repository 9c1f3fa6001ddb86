package domain

import "time"

// ProductSnapshot carries the product fields a cart line needs for display
// and pricing. Price is in cents.
type ProductSnapshot struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	ImageURL string `json:"image_url"`
}

// LineItem is one product entry in a cart. A product appears at most once
// per cart; Quantity is always at least 1.
type LineItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

// Total returns the line total in cents.
func (li LineItem) Total() int64 {
	return li.Product.Price * int64(li.Quantity)
}

// Cart is a user's persisted shopping cart. Each user has at most one cart.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

// ItemCount returns the sum of quantities across all lines.
func (c *Cart) ItemCount() int {
	var n int
	for _, li := range c.Items {
		n += li.Quantity
	}
	return n
}

// Subtotal returns the sum of line totals in cents.
func (c *Cart) Subtotal() int64 {
	var sum int64
	for _, li := range c.Items {
		sum += li.Total()
	}
	return sum
}

// FindLine returns the line for the given product, or nil if absent.
func (c *Cart) FindLine(productID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
