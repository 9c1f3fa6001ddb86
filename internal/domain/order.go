package domain

import "time"

// Order statuses. New orders start pending on both tracks and advance
// through the fulfillment and approval workflows independently.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"

	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// Order is a placed order with its captured price breakdown. Amounts are in
// cents, frozen at checkout time.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Status          string      `json:"status"`
	ApprovalStatus  string      `json:"approval_status"`
	DeliveryAddress string      `json:"delivery_address"`
	PromoCode       string      `json:"promo_code,omitempty"`
	Subtotal        int64       `json:"subtotal"`
	Shipping        int64       `json:"shipping"`
	Discount        int64       `json:"discount"`
	Total           int64       `json:"total"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
}

// OrderItem is a line frozen from the cart at checkout. UnitPrice is in
// cents and does not change if the catalog price moves later.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}
