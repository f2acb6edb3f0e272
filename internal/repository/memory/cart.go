// Package memory provides process-local stores used when no external
// backend is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patelpratyush/neomart-demo/internal/domain"
	apperrors "github.com/patelpratyush/neomart-demo/pkg/errors"
)

// CartRepository implements repository.CartRepository with a mutex-guarded
// map. Stored carts are copied on the way in and out.
type CartRepository struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
	now   func() time.Time
}

// NewCartRepository creates an empty in-memory cart store.
func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[string]*domain.Cart),
		now:   time.Now,
	}
}

// lookup returns the live cart for the session, evicting it when expired.
// Callers must hold r.mu.
func (r *CartRepository) lookup(sessionID string) *domain.Cart {
	c, ok := r.carts[sessionID]
	if !ok {
		return nil
	}
	if !c.ExpiresAt.IsZero() && !r.now().Before(c.ExpiresAt) {
		delete(r.carts, sessionID)
		return nil
	}
	return c
}

// Get retrieves a copy of the session's cart.
func (r *CartRepository) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.lookup(sessionID)
	if c == nil {
		return nil, apperrors.NotFound("cart", sessionID)
	}
	return c.Clone(), nil
}

// SaveIfVersion stores a copy of the cart when the stored version matches.
func (r *CartRepository) SaveIfVersion(_ context.Context, cart *domain.Cart, expected int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := 0
	if c := r.lookup(cart.SessionID); c != nil {
		current = c.Version
	}
	if current != expected {
		return apperrors.Conflict("cart was modified concurrently, retry the request")
	}

	cart.Version = expected + 1
	r.carts[cart.SessionID] = cart.Clone()
	return nil
}

// Len returns the number of stored carts, expired ones included.
func (r *CartRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}
