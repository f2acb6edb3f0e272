package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/patelpratyush/neomart-demo/internal/domain"
	"github.com/patelpratyush/neomart-demo/internal/event"
	"github.com/patelpratyush/neomart-demo/internal/repository"
	apperrors "github.com/patelpratyush/neomart-demo/pkg/errors"
	"github.com/patelpratyush/neomart-demo/pkg/tracing"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart line.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct lines allowed in a cart.
	MaxItemsPerCart = 50
)

// maxSaveAttempts bounds how often a mutation is replayed after losing an
// optimistic-lock race.
const maxSaveAttempts = 3

// ProductLookup resolves catalog product ids. *catalog.Catalog satisfies it.
type ProductLookup interface {
	Product(id string) (domain.Product, error)
}

// AddItemInput holds the parameters for adding an item to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity"`
}

// UpdateQuantityInput holds the parameters for updating an item quantity.
// A quantity of zero or less removes the line.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	repo     repository.CartRepository
	products ProductLookup
	producer *event.Producer
	logger   *slog.Logger
	cartTTL  time.Duration
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, products ProductLookup, producer *event.Producer, logger *slog.Logger, cartTTL time.Duration) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		producer: producer,
		logger:   logger,
		cartTTL:  cartTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetCart retrieves the cart for a session. If no cart exists, returns an
// empty, unsaved cart.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.MissingSession()
	}
	return s.getOrCreateCart(ctx, sessionID)
}

// Groups returns the cart partitioned by vendor source.
func (s *CartService) Groups(ctx context.Context, sessionID string) ([]domain.SourceGroup, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return cart.SourceGroups(), nil
}

// AddItem adds quantity units of a catalog product. An existing line for the
// product is merged by increasing its quantity.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (cart *domain.Cart, err error) {
	defer func() { recordCartOp("add_item", err) }()

	if sessionID == "" {
		return nil, apperrors.MissingSession()
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidQuantity("quantity must be greater than 0")
	}
	if input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidQuantity(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	product, err := s.products.Product(input.ProductID)
	if err != nil {
		return nil, err
	}

	cart, err = s.mutate(ctx, sessionID, func(c *domain.Cart) (bool, error) {
		if item, ok := c.Item(product.ID); ok {
			if item.Quantity+input.Quantity > MaxQuantityPerItem {
				return false, apperrors.InvalidQuantity(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
			}
		} else if len(c.Items) >= MaxItemsPerCart {
			return false, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}

		if err := c.AddItem(product, input.Quantity); err != nil {
			if errors.Is(err, domain.ErrInvalidQuantity) {
				return false, apperrors.InvalidQuantity(err.Error())
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", product.ID),
		slog.String("source", string(product.Source)),
		slog.Int("quantity", input.Quantity),
	)

	return cart, nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line; an id not in the cart leaves it unchanged.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (cart *domain.Cart, err error) {
	defer func() { recordCartOp("update_quantity", err) }()

	if sessionID == "" {
		return nil, apperrors.MissingSession()
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidQuantity(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err = s.mutate(ctx, sessionID, func(c *domain.Cart) (bool, error) {
		return c.UpdateQuantity(productID, quantity), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveItem removes a line from the cart. An id not in the cart leaves it
// unchanged.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (cart *domain.Cart, err error) {
	defer func() { recordCartOp("remove_item", err) }()

	if sessionID == "" {
		return nil, apperrors.MissingSession()
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	cart, err = s.mutate(ctx, sessionID, func(c *domain.Cart) (bool, error) {
		return c.RemoveItem(productID), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
	)

	return cart, nil
}

// ClearCart empties the session's cart. The emptied cart is saved with a
// version check rather than deleted, so the version never goes backwards
// and a checkout holding an older version cannot commit.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (err error) {
	defer func() { recordCartOp("clear", err) }()

	if sessionID == "" {
		return apperrors.MissingSession()
	}

	_, saved, err := s.apply(ctx, sessionID, func(c *domain.Cart) (bool, error) {
		if c.IsEmpty() {
			return false, nil
		}
		c.Clear()
		return true, nil
	})
	if err != nil {
		return err
	}

	if saved {
		if err := s.producer.PublishCartCleared(ctx, sessionID, event.ClearReasonUser); err != nil {
			s.publishFailed(ctx, event.TopicCartCleared, sessionID, err)
		}
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("session_id", sessionID),
	)

	return nil
}

// mutate applies fn through apply and publishes cart.updated when the cart
// was saved.
func (s *CartService) mutate(ctx context.Context, sessionID string, fn func(*domain.Cart) (bool, error)) (*domain.Cart, error) {
	cart, saved, err := s.apply(ctx, sessionID, fn)
	if err != nil {
		return nil, err
	}
	if saved {
		if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
			s.publishFailed(ctx, event.TopicCartUpdated, sessionID, err)
		}
	}
	return cart, nil
}

// apply loads the session's cart, applies fn and saves the result with an
// optimistic version check. A lost race replays fn on a fresh read; after
// maxSaveAttempts the caller gets a conflict. When fn reports no change the
// cart is returned without being saved and saved is false.
func (s *CartService) apply(ctx context.Context, sessionID string, fn func(*domain.Cart) (bool, error)) (_ *domain.Cart, saved bool, err error) {
	ctx, span := tracing.Start(ctx, "cart.mutate", attribute.String("neomart.session_id", sessionID))
	defer func() { tracing.End(span, err) }()

	for attempt := 1; ; attempt++ {
		span.SetAttributes(attribute.Int("neomart.cart.attempt", attempt))
		cart, err := s.getOrCreateCart(ctx, sessionID)
		if err != nil {
			return nil, false, err
		}
		expectedVersion := cart.Version

		changed, err := fn(cart)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return cart, false, nil
		}

		now := s.now()
		cart.UpdatedAt = now
		cart.ExpiresAt = now.Add(s.cartTTL)

		err = s.repo.SaveIfVersion(ctx, cart, expectedVersion)
		if err == nil {
			return cart, true, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, false, fmt.Errorf("save cart: %w", err)
		}

		CartVersionConflicts.Inc()
		if attempt >= maxSaveAttempts {
			return nil, false, apperrors.Conflict("cart was modified concurrently, please retry")
		}
		s.logger.DebugContext(ctx, "cart version conflict, retrying",
			slog.String("session_id", sessionID),
			slog.Int("attempt", attempt),
		)
	}
}

func (s *CartService) publishFailed(ctx context.Context, topic, sessionID string, err error) {
	EventPublishFailures.WithLabelValues(topic).Inc()
	s.logger.ErrorContext(ctx, "failed to publish event",
		slog.String("topic", topic),
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
}

// getOrCreateCart retrieves the cart for a session, creating an empty one if
// it does not exist.
func (s *CartService) getOrCreateCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(uuid.New().String(), sessionID, s.now(), s.cartTTL), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}
