package checkout

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tausif706/FreshMart/internal/domain"
	"github.com/Tausif706/FreshMart/internal/store"
	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
)

// memCartGateway is a minimal in-memory cart backend for checkout tests.
type memCartGateway struct {
	cart  *domain.Cart
	items []domain.LineItem
}

func (m *memCartGateway) GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	if m.cart == nil {
		return nil, apperrors.ErrNotFound
	}
	return &domain.Cart{ID: m.cart.ID, UserID: m.cart.UserID}, nil
}

func (m *memCartGateway) CreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	m.cart = &domain.Cart{ID: "cart-1", UserID: userID, CreatedAt: time.Now()}
	return &domain.Cart{ID: m.cart.ID, UserID: userID}, nil
}

func (m *memCartGateway) ListLineItems(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	out := make([]domain.LineItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *memCartGateway) GetLineItemByProduct(ctx context.Context, cartID, productID string) (*domain.LineItem, error) {
	return nil, apperrors.ErrNotFound
}

func (m *memCartGateway) InsertLineItem(ctx context.Context, cartID, productID string, quantity int) (*domain.LineItem, error) {
	return nil, errors.New("not used in checkout tests")
}

func (m *memCartGateway) UpdateLineItemQuantity(ctx context.Context, itemID string, quantity int) error {
	return errors.New("not used in checkout tests")
}

func (m *memCartGateway) DeleteLineItem(ctx context.Context, itemID string) error { return nil }

func (m *memCartGateway) DeleteAllLineItems(ctx context.Context, cartID string) error {
	m.items = nil
	return nil
}

type memUserGateway struct {
	address string
	err     error
}

func (m *memUserGateway) GetUserAddress(ctx context.Context, userID string) (string, error) {
	return m.address, m.err
}

type memOrderGateway struct {
	created *domain.Order
	err     error
}

func (m *memOrderGateway) CreateOrder(ctx context.Context, o *domain.Order) error {
	if m.err != nil {
		return m.err
	}
	m.created = o
	return nil
}

func (m *memOrderGateway) ListAdminUserIDs(ctx context.Context) ([]string, error) {
	return []string{"admin-1"}, nil
}

type capturingPublisher struct {
	orders []*domain.Order
}

func (c *capturingPublisher) OrderPlaced(_ context.Context, o *domain.Order) {
	c.orders = append(c.orders, o)
}

func setup(t *testing.T, items []domain.LineItem, address string) (*Service, *memCartGateway, *memOrderGateway, *capturingPublisher) {
	t.Helper()

	gw := &memCartGateway{
		cart:  &domain.Cart{ID: "cart-1", UserID: "user-1"},
		items: items,
	}
	orders := &memOrderGateway{}
	events := &capturingPublisher{}

	logger := slog.New(slog.DiscardHandler)
	carts := store.New(gw, logger)
	svc := NewService(carts, &memUserGateway{address: address}, orders, logger, WithPublisher(events))
	return svc, gw, orders, events
}

func groceryItems() []domain.LineItem {
	return []domain.LineItem{
		{ID: "li-1", ProductID: "p-1", Quantity: 2, Product: domain.ProductSnapshot{Name: "Apples", Price: 3000}},
		{ID: "li-2", ProductID: "p-2", Quantity: 1, Product: domain.ProductSnapshot{Name: "Milk", Price: 4000}},
	}
}

func TestCheckout_PlacesOrderAndClearsCart(t *testing.T) {
	svc, gw, orders, events := setup(t, groceryItems(), "1 Main St")

	order, err := svc.Checkout(context.Background(), "user-1", "")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.ApprovalStatusPending, order.ApprovalStatus)
	assert.Equal(t, "1 Main St", order.DeliveryAddress)
	assert.Equal(t, int64(10000), order.Subtotal)
	assert.Equal(t, int64(0), order.Shipping)
	assert.Equal(t, int64(10000), order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(3000), order.Items[0].UnitPrice)

	require.NotNil(t, orders.created)
	assert.Empty(t, gw.items, "cart must be cleared after checkout")
	require.Len(t, events.orders, 1)
	assert.Equal(t, order.ID, events.orders[0].ID)
}

func TestCheckout_AppliesPromo(t *testing.T) {
	svc, _, _, _ := setup(t, groceryItems(), "1 Main St")

	order, err := svc.Checkout(context.Background(), "user-1", "fresh10")
	require.NoError(t, err)

	assert.Equal(t, "FRESH10", order.PromoCode)
	assert.Equal(t, int64(1000), order.Discount)
	assert.Equal(t, int64(9000), order.Total)
}

func TestCheckout_UnknownPromoRejected(t *testing.T) {
	svc, _, orders, _ := setup(t, groceryItems(), "1 Main St")

	_, err := svc.Checkout(context.Background(), "user-1", "SAVE99")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Nil(t, orders.created)
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	svc, _, orders, _ := setup(t, nil, "1 Main St")

	_, err := svc.Checkout(context.Background(), "user-1", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Nil(t, orders.created)
}

func TestCheckout_MissingAddressRejected(t *testing.T) {
	svc, _, orders, _ := setup(t, groceryItems(), "")

	_, err := svc.Checkout(context.Background(), "user-1", "")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ADDRESS_REQUIRED", appErr.Code)
	assert.Equal(t, 422, appErr.Status)
	assert.Nil(t, orders.created)
}

func TestCheckout_ShippingChargedBelowThreshold(t *testing.T) {
	items := []domain.LineItem{
		{ID: "li-1", ProductID: "p-1", Quantity: 1, Product: domain.ProductSnapshot{Name: "Bread", Price: 4999}},
	}
	svc, _, _, _ := setup(t, items, "1 Main St")

	order, err := svc.Checkout(context.Background(), "user-1", "")
	require.NoError(t, err)

	assert.Equal(t, domain.ShippingFeeCents, order.Shipping)
	assert.Equal(t, int64(4999+599), order.Total)
}

func TestCheckout_OrderWriteFailureKeepsCart(t *testing.T) {
	svc, gw, orders, events := setup(t, groceryItems(), "1 Main St")
	orders.err = errors.New("backend down")

	_, err := svc.Checkout(context.Background(), "user-1", "")
	require.Error(t, err)

	assert.NotEmpty(t, gw.items, "cart must survive a failed order write")
	assert.Empty(t, events.orders)
}
