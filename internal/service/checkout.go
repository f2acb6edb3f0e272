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

const (
	// DefaultDeliveryWindow is used when an order is placed without one.
	DefaultDeliveryWindow = "Today, 6-8 PM"
	// DefaultOrderListLimit caps ListOrders when no limit is given.
	DefaultOrderListLimit = 20
)

// AddressInput is the delivery address supplied at checkout.
type AddressInput struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=50"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Phone      string `json:"phone" validate:"omitempty,max=30"`
}

func (a *AddressInput) toDomain() *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Phone:      a.Phone,
	}
}

// PlaceOrderInput holds the parameters for placing an order.
type PlaceOrderInput struct {
	Mode           string        `json:"mode" validate:"omitempty,oneof=delivery pickup"`
	Address        *AddressInput `json:"address"`
	DeliveryWindow string        `json:"delivery_window" validate:"max=64"`
}

// OrderView is an order together with its tracking timeline.
type OrderView struct {
	*domain.Order
	Tracking []domain.TrackingStep `json:"tracking"`
}

// CheckoutService prices carts and turns them into orders.
type CheckoutService struct {
	carts    repository.CartRepository
	orders   repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
	policy   domain.PricingPolicy
	delay    time.Duration
	now      func() time.Time
}

// NewCheckoutService creates a new checkout service. delay is the simulated
// order processing time.
func NewCheckoutService(
	carts repository.CartRepository,
	orders repository.OrderRepository,
	producer *event.Producer,
	logger *slog.Logger,
	policy domain.PricingPolicy,
	delay time.Duration,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		orders:   orders,
		producer: producer,
		logger:   logger,
		policy:   policy,
		delay:    delay,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Quote prices the session's cart for the given delivery mode.
func (s *CheckoutService) Quote(ctx context.Context, sessionID, rawMode string) (*domain.Quote, error) {
	if sessionID == "" {
		return nil, apperrors.MissingSession()
	}
	mode, err := domain.ParseDeliveryMode(rawMode)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	q := domain.NewQuote(cart, mode, s.policy)
	return &q, nil
}

// PlaceOrder checks out the session's cart. The cart is cleared with a
// version check once processing finishes, so a cart changed in the meantime
// fails with a conflict and no order is stored.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID string, input PlaceOrderInput) (_ *OrderView, err error) {
	ctx, span := tracing.Start(ctx, "checkout.place_order",
		attribute.String("neomart.session_id", sessionID),
		attribute.String("neomart.checkout.mode", input.Mode),
	)
	defer func() { tracing.End(span, err) }()

	if sessionID == "" {
		return nil, apperrors.MissingSession()
	}
	mode, err := domain.ParseDeliveryMode(input.Mode)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if mode == domain.DeliveryModeDelivery && input.Address == nil {
		return nil, apperrors.InvalidInput("address is required for delivery orders")
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := cart.ReadyForCheckout(); err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			return nil, apperrors.Unprocessable("EMPTY_CART", "cannot place an order from an empty cart")
		}
		return nil, err
	}

	if err := s.simulateProcessing(ctx); err != nil {
		return nil, err
	}

	quote := domain.NewQuote(cart, mode, s.policy)
	order := domain.NewOrder(uuid.New().String(), cart, quote, s.now())
	order.Address = input.Address.toDomain()
	order.DeliveryWindow = input.DeliveryWindow
	if order.DeliveryWindow == "" && mode == domain.DeliveryModeDelivery {
		order.DeliveryWindow = DefaultDeliveryWindow
	}

	original := cart.Clone()
	expectedVersion := cart.Version
	cart.Clear()
	cart.UpdatedAt = order.PlacedAt
	if err := s.carts.SaveIfVersion(ctx, cart, expectedVersion); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			CartVersionConflicts.Inc()
			return nil, apperrors.Conflict("cart changed during checkout, please review it and retry")
		}
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.restoreCart(ctx, original, cart.Version)
		return nil, fmt.Errorf("create order: %w", err)
	}

	span.SetAttributes(
		attribute.String("neomart.order.id", order.ID),
		attribute.Int("neomart.order.lines", len(order.Lines)),
	)
	OrdersPlaced.WithLabelValues(string(mode)).Inc()
	OrderValue.Observe(order.Total.InexactFloat64())

	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.publishFailed(ctx, event.TopicOrderPlaced, sessionID, err)
	}
	if err := s.producer.PublishCartCleared(ctx, sessionID, event.ClearReasonOrder); err != nil {
		s.publishFailed(ctx, event.TopicCartCleared, sessionID, err)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("session_id", sessionID),
		slog.String("order_id", order.ID),
		slog.String("number", order.Number),
		slog.String("mode", string(mode)),
		slog.Int("lines", len(order.Lines)),
		slog.String("total", order.Total.StringFixed(2)),
	)

	return &OrderView{Order: order, Tracking: order.Tracking()}, nil
}

// Order returns an order placed by the session. Orders of other sessions
// are reported as not found.
func (s *CheckoutService) Order(ctx context.Context, sessionID, orderID string) (*OrderView, error) {
	if sessionID == "" {
		return nil, apperrors.MissingSession()
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.SessionID != sessionID {
		return nil, apperrors.NotFound("order", orderID)
	}

	return &OrderView{Order: order, Tracking: order.Tracking()}, nil
}

// ListOrders returns the session's most recent orders, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, sessionID string, limit int) ([]domain.Order, error) {
	if sessionID == "" {
		return nil, apperrors.MissingSession()
	}
	if limit <= 0 || limit > DefaultOrderListLimit {
		limit = DefaultOrderListLimit
	}

	orders, err := s.orders.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *CheckoutService) loadCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart("", sessionID, s.now(), 0), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *CheckoutService) simulateProcessing(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("order processing: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// restoreCart puts the pre-checkout items back after the order could not be
// stored.
func (s *CheckoutService) restoreCart(ctx context.Context, original *domain.Cart, version int) {
	if err := s.carts.SaveIfVersion(ctx, original, version); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore cart after order failure",
			slog.String("session_id", original.SessionID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CheckoutService) publishFailed(ctx context.Context, topic, sessionID string, err error) {
	EventPublishFailures.WithLabelValues(topic).Inc()
	s.logger.ErrorContext(ctx, "failed to publish event",
		slog.String("topic", topic),
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
}
