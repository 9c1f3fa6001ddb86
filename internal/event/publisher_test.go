package event

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tausif706/FreshMart/internal/domain"
	"github.com/Tausif706/FreshMart/pkg/kafka"
)

type capturingProducer struct {
	topics []string
	keys   []string
	events []kafka.Event
	err    error
}

func (c *capturingProducer) Publish(_ context.Context, topic, key string, evt kafka.Event) error {
	if c.err != nil {
		return c.err
	}
	c.topics = append(c.topics, topic)
	c.keys = append(c.keys, key)
	c.events = append(c.events, evt)
	return nil
}

func TestPublisher_CartUpdated(t *testing.T) {
	producer := &capturingProducer{}
	p := NewPublisher(producer, slog.New(slog.DiscardHandler))

	cart := &domain.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Items: []domain.LineItem{
			{ProductID: "p-1", Quantity: 2, Product: domain.ProductSnapshot{Price: 300}},
		},
	}
	p.CartUpdated(context.Background(), cart)

	require.Len(t, producer.events, 1)
	assert.Equal(t, "freshmart.cart.updated", producer.topics[0])
	assert.Equal(t, "user-1", producer.keys[0])
	assert.Equal(t, "cart.updated", producer.events[0].Type)

	payload, ok := producer.events[0].Payload.(cartUpdatedPayload)
	require.True(t, ok)
	assert.Equal(t, 2, payload.ItemCount)
	assert.Equal(t, int64(600), payload.Subtotal)
}

func TestPublisher_OrderPlaced(t *testing.T) {
	producer := &capturingProducer{}
	p := NewPublisher(producer, slog.New(slog.DiscardHandler))

	p.OrderPlaced(context.Background(), &domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Total:  9000,
		Items: []domain.OrderItem{
			{Quantity: 2},
			{Quantity: 1},
		},
	})

	require.Len(t, producer.events, 1)
	assert.Equal(t, "freshmart.order.placed", producer.topics[0])

	payload, ok := producer.events[0].Payload.(orderPlacedPayload)
	require.True(t, ok)
	assert.Equal(t, 3, payload.ItemCount)
	assert.Equal(t, int64(9000), payload.Total)
}

func TestPublisher_BrokerFailureDoesNotPanic(t *testing.T) {
	producer := &capturingProducer{err: errors.New("broker down")}
	p := NewPublisher(producer, slog.New(slog.DiscardHandler))

	assert.NotPanics(t, func() {
		p.CartCleared(context.Background(), "user-1")
	})
}
