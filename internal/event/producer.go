package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/patelpratyush/neomart-demo/internal/domain"
	"github.com/patelpratyush/neomart-demo/pkg/events"
)

// Topics for storefront domain events.
var (
	TopicCartUpdated = events.Topic("cart", "updated")
	TopicCartCleared = events.Topic("cart", "cleared")
	TopicOrderPlaced = events.Topic("order", "placed")
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "neomart-storefront"

// Reasons carried by cart.cleared events.
const (
	ClearReasonUser  = "user"
	ClearReasonOrder = "order_placed"
)

// Publisher is the transport a Producer sends envelopes through.
// *kafka.Producer and *rabbitmq.Publisher satisfy it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *events.Event) error
	Close() error
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID  string          `json:"session_id"`
	CartID     string          `json:"cart_id"`
	Items      []CartItemData  `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
	Version    int             `json:"version"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Source    domain.Source   `json:"source"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID   string              `json:"order_id"`
	Number    string              `json:"number"`
	SessionID string              `json:"session_id"`
	Mode      domain.DeliveryMode `json:"mode"`
	Lines     int                 `json:"lines"`
	Total     decimal.Decimal     `json:"total"`
	Currency  string              `json:"currency"`
	Sources   []domain.Source     `json:"sources"`
}

// Producer publishes storefront domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer over the given transport.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := events.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.FromContext(ctx)

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("event_id", event.EventID),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Source:    item.Product.Source,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
		}
	}

	return p.publish(ctx, TopicCartUpdated, cart.SessionID, AggregateTypeCart, CartUpdatedData{
		SessionID:  cart.SessionID,
		CartID:     cart.ID,
		Items:      items,
		TotalItems: cart.TotalItems,
		TotalPrice: cart.TotalPrice,
		Currency:   cart.Currency,
		Version:    cart.Version,
	})
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID, reason string) error {
	return p.publish(ctx, TopicCartCleared, sessionID, AggregateTypeCart, CartClearedData{
		SessionID: sessionID,
		Reason:    reason,
	})
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	seen := make(map[domain.Source]bool)
	sources := make([]domain.Source, 0)
	for _, line := range order.Lines {
		if !seen[line.Source] {
			seen[line.Source] = true
			sources = append(sources, line.Source)
		}
	}

	return p.publish(ctx, TopicOrderPlaced, order.ID, AggregateTypeOrder, OrderPlacedData{
		OrderID:   order.ID,
		Number:    order.Number,
		SessionID: order.SessionID,
		Mode:      order.Mode,
		Lines:     len(order.Lines),
		Total:     order.Total,
		Currency:  order.Currency,
		Sources:   sources,
	})
}

// Close releases the underlying transport.
func (p *Producer) Close() error {
	return p.publisher.Close()
}
