package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Tausif706/FreshMart/internal/domain"
	"github.com/Tausif706/FreshMart/pkg/database"
	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
)

// CartGateway implements gateway.CartGateway using PostgreSQL.
type CartGateway struct {
	pool database.DBTX
}

// NewCartGateway creates a PostgreSQL-backed cart gateway.
func NewCartGateway(pool database.DBTX) *CartGateway {
	return &CartGateway{pool: pool}
}

// GetCartByUser returns the user's cart header without its items.
func (g *CartGateway) GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `SELECT id, user_id, created_at FROM carts WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "GetCartByUser", query)
	var c domain.Cart
	err := g.pool.QueryRow(ctx, query, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	end(err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}
	return &c, nil
}

// CreateCart creates an empty cart for the user. A concurrent create for the
// same user loses to the unique constraint and is resolved by re-reading.
func (g *CartGateway) CreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `INSERT INTO carts (id, user_id, created_at) VALUES ($1, $2, $3)`

	c := &domain.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []domain.LineItem{},
		CreatedAt: time.Now().UTC(),
	}

	ctx, end := database.TraceQuery(ctx, "CreateCart", query)
	_, err := g.pool.Exec(ctx, query, c.ID, c.UserID, c.CreatedAt)
	end(err)

	if err != nil {
		if isUniqueViolation(err) {
			return g.GetCartByUser(ctx, userID)
		}
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	return c, nil
}

// ListLineItems returns the cart's lines joined with their product snapshots.
func (g *CartGateway) ListLineItems(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	query := `
		SELECT ci.id, ci.product_id, ci.quantity, p.name, p.price, p.image_url
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at`

	ctx, end := database.TraceQuery(ctx, "ListLineItems", query)
	rows, err := g.pool.Query(ctx, query, cartID)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ID, &li.ProductID, &li.Quantity, &li.Product.Name, &li.Product.Price, &li.Product.ImageURL); err != nil {
			end(err)
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, li)
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

// GetLineItemByProduct returns the line for the product, or ErrNotFound.
func (g *CartGateway) GetLineItemByProduct(ctx context.Context, cartID, productID string) (*domain.LineItem, error) {
	query := `
		SELECT ci.id, ci.product_id, ci.quantity, p.name, p.price, p.image_url
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1 AND ci.product_id = $2`

	ctx, end := database.TraceQuery(ctx, "GetLineItemByProduct", query)
	var li domain.LineItem
	err := g.pool.QueryRow(ctx, query, cartID, productID).Scan(
		&li.ID, &li.ProductID, &li.Quantity, &li.Product.Name, &li.Product.Price, &li.Product.ImageURL,
	)
	end(err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan cart item: %w", err)
	}
	return &li, nil
}

// InsertLineItem adds a new line and returns it with the product snapshot.
// A duplicate product in the same cart violates the unique constraint and
// maps to ErrAlreadyExists.
func (g *CartGateway) InsertLineItem(ctx context.Context, cartID, productID string, quantity int) (*domain.LineItem, error) {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	id := uuid.NewString()

	ctx, end := database.TraceQuery(ctx, "InsertLineItem", query)
	_, err := g.pool.Exec(ctx, query, id, cartID, productID, quantity, time.Now().UTC())
	end(err)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert cart item: %w", err)
	}

	return g.GetLineItemByProduct(ctx, cartID, productID)
}

// UpdateLineItemQuantity sets the quantity of an existing line.
func (g *CartGateway) UpdateLineItemQuantity(ctx context.Context, itemID string, quantity int) error {
	query := `UPDATE cart_items SET quantity = $2 WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateLineItemQuantity", query)
	tag, err := g.pool.Exec(ctx, query, itemID, quantity)
	end(err)

	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteLineItem removes a line. Deleting an absent line succeeds.
func (g *CartGateway) DeleteLineItem(ctx context.Context, itemID string) error {
	query := `DELETE FROM cart_items WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteLineItem", query)
	_, err := g.pool.Exec(ctx, query, itemID)
	end(err)

	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

// DeleteAllLineItems removes every line in the cart.
func (g *CartGateway) DeleteAllLineItems(ctx context.Context, cartID string) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteAllLineItems", query)
	_, err := g.pool.Exec(ctx, query, cartID)
	end(err)

	if err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
