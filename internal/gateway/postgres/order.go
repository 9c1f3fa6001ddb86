package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Tausif706/FreshMart/internal/domain"
	"github.com/Tausif706/FreshMart/pkg/database"
)

// OrderGateway implements gateway.OrderGateway using PostgreSQL.
type OrderGateway struct {
	pool database.DBTX
}

// NewOrderGateway creates a PostgreSQL-backed order gateway.
func NewOrderGateway(pool database.DBTX) *OrderGateway {
	return &OrderGateway{pool: pool}
}

// rowQuerier is satisfied by both the pool and an open transaction.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// CreateOrder inserts the order, its items, and one pending approval row per
// admin reviewer atomically.
func (g *OrderGateway) CreateOrder(ctx context.Context, o *domain.Order) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orderQuery := `
		INSERT INTO orders (id, user_id, status, approval_status, delivery_address, promo_code, subtotal, shipping, discount, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.UserID,
		o.Status,
		o.ApprovalStatus,
		o.DeliveryAddress,
		o.PromoCode,
		o.Subtotal,
		o.Shipping,
		o.Discount,
		o.Total,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.UnitPrice,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	adminIDs, err := listAdminIDs(ctx, tx)
	if err != nil {
		return err
	}

	approvalQuery := `
		INSERT INTO order_approvals (id, order_id, admin_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, adminID := range adminIDs {
		_, err = tx.Exec(ctx, approvalQuery,
			uuid.NewString(),
			o.ID,
			adminID,
			domain.ApprovalStatusPending,
			o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order approval: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListAdminUserIDs returns the IDs of users with the admin role.
func (g *OrderGateway) ListAdminUserIDs(ctx context.Context) ([]string, error) {
	return listAdminIDs(ctx, g.pool)
}

func listAdminIDs(ctx context.Context, q rowQuerier) ([]string, error) {
	query := `SELECT id FROM users WHERE role = 'admin'`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query admin users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin users: %w", err)
	}
	return ids, nil
}
