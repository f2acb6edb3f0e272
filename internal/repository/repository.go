package repository

import (
	"context"

	"github.com/patelpratyush/neomart-demo/internal/domain"
)

// CartRepository defines the interface for cart persistence operations.
// Carts are keyed by session id.
type CartRepository interface {
	// Get retrieves the cart for a session. A missing or expired cart
	// yields an error matching apperrors.ErrNotFound.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// SaveIfVersion stores the cart if the stored version still equals
	// expected, where zero means no cart is stored. On success cart.Version
	// is set to expected+1. A lost race yields an error matching
	// apperrors.ErrConflict and leaves cart.Version untouched.
	// Carts are never deleted by the service; an emptied cart is saved so
	// its version keeps increasing until the TTL expires it.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int) error
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts an order and its lines atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by id.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListBySession returns the most recent orders placed by a session,
	// newest first.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.Order, error)
}
