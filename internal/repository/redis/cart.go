package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/patelpratyush/neomart-demo/internal/domain"
	"github.com/patelpratyush/neomart-demo/pkg/database"
	apperrors "github.com/patelpratyush/neomart-demo/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis. Each
// cart is one JSON value under cart:<session id> with the cart TTL.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Get retrieves a cart by session ID from Redis.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (cart *domain.Cart, err error) {
	ctx, end := database.TraceCommand(ctx, "GetCart", "GET "+keyPrefix+"*")
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", sessionID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	return decode(data)
}

func decode(data []byte) (*domain.Cart, error) {
	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// SaveIfVersion writes the cart inside a WATCH/MULTI transaction so a
// concurrent writer for the same session aborts one of the two saves.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int) (err error) {
	ctx, end := database.TraceCommand(ctx, "SaveCart", "WATCH GET MULTI SET EXEC "+keyPrefix+"*")
	defer func() { end(err) }()

	k := key(cart.SessionID)
	next := *cart
	next.Version = expected + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		current := 0
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get cart: %w", err)
		default:
			stored, err := decode(raw)
			if err != nil {
				return err
			}
			current = stored.Version
		}

		if current != expected {
			return apperrors.Conflict("cart was modified concurrently, retry the request")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, r.ttl)
			return nil
		})
		return err
	}

	if err := r.client.Watch(ctx, txf, k); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return apperrors.Conflict("cart was modified concurrently, retry the request")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("redis save cart: %w", err)
	}

	cart.Version = next.Version
	return nil
}

// Ping reports whether Redis is reachable.
func (r *CartRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
