// Package checkout turns a cart into a placed order.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Tausif706/FreshMart/internal/domain"
	"github.com/Tausif706/FreshMart/internal/gateway"
	"github.com/Tausif706/FreshMart/internal/store"
	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
)

// publisher receives the order placed notification.
type publisher interface {
	OrderPlaced(ctx context.Context, order *domain.Order)
}

type noopPublisher struct{}

func (noopPublisher) OrderPlaced(context.Context, *domain.Order) {}

// Service places orders from carts. The price breakdown is computed at
// checkout time and frozen onto the order.
type Service struct {
	carts  *store.Store
	users  gateway.UserGateway
	orders gateway.OrderGateway
	events publisher
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the checkout service.
type Option func(*Service)

// WithPublisher sets the sink for order placed events.
func WithPublisher(p publisher) Option {
	return func(s *Service) { s.events = p }
}

// NewService creates a checkout service.
func NewService(carts *store.Store, users gateway.UserGateway, orders gateway.OrderGateway, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		carts:  carts,
		users:  users,
		orders: orders,
		events: noopPublisher{},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout places an order from the user's current cart. The user must have
// a delivery address on file and a non-empty cart. The cart is cleared after
// the order is written; a failure to clear is logged but does not undo the
// order.
//
// The snapshot read, the order write, and the clear do not hold the cart's
// mutation guard across the whole sequence, so an add that lands in between
// is swept away by the clear without being ordered. The user sees it drop
// out of the refreshed cart immediately.
func (s *Service) Checkout(ctx context.Context, userID, promoCode string) (*domain.Order, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	address, err := s.users.GetUserAddress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load delivery address: %w", err)
	}
	if address == "" {
		return nil, apperrors.Precondition("ADDRESS_REQUIRED", "a delivery address is required before checkout")
	}

	var promo *domain.Promo
	if promoCode != "" {
		p, ok := domain.LookupPromo(promoCode)
		if !ok {
			return nil, apperrors.InvalidInput("unknown promo code")
		}
		promo = &p
	}

	totals := domain.ComputeTotals(cart, promo)

	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		ApprovalStatus:  domain.ApprovalStatusPending,
		DeliveryAddress: address,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Discount:        totals.Discount,
		Total:           totals.Total,
		CreatedAt:       s.now(),
	}
	if promo != nil {
		order.PromoCode = promo.Code
	}

	order.Items = make([]domain.OrderItem, 0, len(cart.Items))
	for _, li := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: li.ProductID,
			Name:      li.Product.Name,
			UnitPrice: li.Product.Price,
			Quantity:  li.Quantity,
		})
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	if _, err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.Error("cart clear after checkout failed",
			slog.String("user_id", userID),
			slog.String("order_id", order.ID),
			slog.Any("error", err),
		)
	}

	s.events.OrderPlaced(ctx, order)
	return order, nil
}
