// Package gateway defines the interfaces to the remote persistence backend.
// The cart store and checkout service talk only to these interfaces so tests
// can substitute fakes and the backing implementation can change.
package gateway

import (
	"context"

	"github.com/Tausif706/FreshMart/internal/domain"
)

// CartGateway provides access to carts and their line items.
//
// Implementations map backend-specific failures onto the pkg/errors
// sentinels: a duplicate line insert returns ErrAlreadyExists, a missing
// cart returns ErrNotFound.
type CartGateway interface {
	// GetCartByUser returns the user's cart without its items, or
	// ErrNotFound if the user has no cart yet.
	GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error)

	// CreateCart creates an empty cart for the user and returns it.
	CreateCart(ctx context.Context, userID string) (*domain.Cart, error)

	// ListLineItems returns the cart's lines with their product snapshots,
	// ordered by insertion time.
	ListLineItems(ctx context.Context, cartID string) ([]domain.LineItem, error)

	// GetLineItemByProduct returns the line for the product, or ErrNotFound.
	GetLineItemByProduct(ctx context.Context, cartID, productID string) (*domain.LineItem, error)

	// InsertLineItem adds a new line. Inserting a product already present in
	// the cart returns ErrAlreadyExists.
	InsertLineItem(ctx context.Context, cartID, productID string, quantity int) (*domain.LineItem, error)

	// UpdateLineItemQuantity sets the quantity of an existing line.
	UpdateLineItemQuantity(ctx context.Context, itemID string, quantity int) error

	// DeleteLineItem removes a line. Deleting an absent line is not an error.
	DeleteLineItem(ctx context.Context, itemID string) error

	// DeleteAllLineItems removes every line in the cart.
	DeleteAllLineItems(ctx context.Context, cartID string) error
}

// UserGateway reads user profile data owned by the auth backend.
type UserGateway interface {
	// GetUserAddress returns the user's saved delivery address. It is empty
	// when the user has not set one.
	GetUserAddress(ctx context.Context, userID string) (string, error)
}

// OrderGateway persists placed orders.
type OrderGateway interface {
	// CreateOrder writes the order, its items, and one approval row per
	// admin reviewer in a single transaction.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// ListAdminUserIDs returns the IDs of users who review orders.
	ListAdminUserIDs(ctx context.Context) ([]string, error)
}
