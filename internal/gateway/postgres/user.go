package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Tausif706/FreshMart/pkg/database"
	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
)

// UserGateway implements gateway.UserGateway using PostgreSQL.
type UserGateway struct {
	pool database.DBTX
}

// NewUserGateway creates a PostgreSQL-backed user gateway.
func NewUserGateway(pool database.DBTX) *UserGateway {
	return &UserGateway{pool: pool}
}

// GetUserAddress returns the user's saved delivery address, which may be
// empty.
func (g *UserGateway) GetUserAddress(ctx context.Context, userID string) (string, error) {
	query := `SELECT COALESCE(address, '') FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetUserAddress", query)
	var address string
	err := g.pool.QueryRow(ctx, query, userID).Scan(&address)
	end(err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("scan user address: %w", err)
	}
	return address, nil
}
