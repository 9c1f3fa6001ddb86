// Package event publishes cart and order lifecycle events to Kafka.
// Delivery is best effort: a broker outage is logged and never fails the
// operation that triggered the event.
package event

import (
	"context"
	"log/slog"

	"github.com/Tausif706/FreshMart/internal/domain"
	"github.com/Tausif706/FreshMart/pkg/kafka"
)

const source = "cart-service"

// Topics for cart and order lifecycle events.
var (
	TopicCartUpdated = kafka.Topic("cart", "updated")
	TopicCartCleared = kafka.Topic("cart", "cleared")
	TopicOrderPlaced = kafka.Topic("order", "placed")
)

// Producer is the subset of the Kafka producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic, key string, event kafka.Event) error
}

// Publisher emits domain events keyed by user ID so per-user ordering holds.
type Publisher struct {
	producer Producer
	logger   *slog.Logger
}

// NewPublisher creates an event publisher.
func NewPublisher(producer Producer, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

type cartUpdatedPayload struct {
	UserID    string `json:"user_id"`
	CartID    string `json:"cart_id"`
	ItemCount int    `json:"item_count"`
	Subtotal  int64  `json:"subtotal"`
}

// CartUpdated reports that a cart's contents changed.
func (p *Publisher) CartUpdated(ctx context.Context, cart *domain.Cart) {
	evt := kafka.NewEvent("cart.updated", source, cartUpdatedPayload{
		UserID:    cart.UserID,
		CartID:    cart.ID,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
	})
	p.publish(ctx, TopicCartUpdated, cart.UserID, evt)
}

type cartClearedPayload struct {
	UserID string `json:"user_id"`
}

// CartCleared reports that a cart was emptied.
func (p *Publisher) CartCleared(ctx context.Context, userID string) {
	evt := kafka.NewEvent("cart.cleared", source, cartClearedPayload{UserID: userID})
	p.publish(ctx, TopicCartCleared, userID, evt)
}

type orderPlacedPayload struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	Total     int64  `json:"total"`
	ItemCount int    `json:"item_count"`
}

// OrderPlaced reports that checkout completed and an order was created.
func (p *Publisher) OrderPlaced(ctx context.Context, order *domain.Order) {
	var count int
	for _, item := range order.Items {
		count += item.Quantity
	}
	evt := kafka.NewEvent("order.placed", source, orderPlacedPayload{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		ItemCount: count,
	})
	p.publish(ctx, TopicOrderPlaced, order.UserID, evt)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, evt kafka.Event) {
	if err := p.producer.Publish(ctx, topic, key, evt); err != nil {
		p.logger.Error("event publish failed",
			slog.String("topic", topic),
			slog.String("event_type", evt.Type),
			slog.Any("error", err),
		)
	}
}
