package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patelpratyush/neomart-demo/internal/domain"
	"github.com/patelpratyush/neomart-demo/pkg/events"
	"github.com/patelpratyush/neomart-demo/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []*events.Event
	err    error
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, e *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func product(id string, src domain.Source, price string) domain.Product {
	return domain.Product{ID: id, Name: id, Source: src, Price: decimal.RequireFromString(price), Unit: "1 ea"}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "neomart.cart.updated", TopicCartUpdated)
	assert.Equal(t, "neomart.cart.cleared", TopicCartCleared)
	assert.Equal(t, "neomart.order.placed", TopicOrderPlaced)
}

func TestPublishCartUpdated(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, discardLogger())

	cart := domain.NewCart("cart-1", "sess-1", time.Now(), time.Hour)
	require.NoError(t, cart.AddItem(product("nm-banana", domain.SourceNeoMart, "0.29"), 6))
	require.NoError(t, cart.AddItem(product("hm-kimchi", domain.SourceHMart, "7.99"), 1))
	cart.Version = 4

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.PublishCartUpdated(ctx, cart))

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicCartUpdated, pub.topics[0])
	e := pub.events[0]
	assert.Equal(t, "sess-1", e.AggregateID)
	assert.Equal(t, AggregateTypeCart, e.AggregateType)
	assert.Equal(t, SourceStorefront, e.Source)
	assert.Equal(t, "corr-1", e.CorrelationID)

	var data CartUpdatedData
	require.NoError(t, e.UnmarshalData(&data))
	assert.Equal(t, "cart-1", data.CartID)
	assert.Equal(t, 7, data.TotalItems)
	assert.True(t, decimal.RequireFromString("9.73").Equal(data.TotalPrice))
	assert.Equal(t, 4, data.Version)
	require.Len(t, data.Items, 2)
	assert.Equal(t, "nm-banana", data.Items[0].ProductID)
	assert.Equal(t, domain.SourceHMart, data.Items[1].Source)
}

func TestPublishCartCleared(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, discardLogger())

	require.NoError(t, p.PublishCartCleared(context.Background(), "sess-1", ClearReasonOrder))

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicCartCleared, pub.topics[0])
	var data CartClearedData
	require.NoError(t, pub.events[0].UnmarshalData(&data))
	assert.Equal(t, "sess-1", data.SessionID)
	assert.Equal(t, ClearReasonOrder, data.Reason)
}

func TestPublishOrderPlaced_DistinctSources(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, discardLogger())

	cart := domain.NewCart("cart-1", "sess-1", time.Now(), time.Hour)
	require.NoError(t, cart.AddItem(product("pt-toor-dal", domain.SourcePatel, "6.99"), 1))
	require.NoError(t, cart.AddItem(product("nm-banana", domain.SourceNeoMart, "0.29"), 2))
	require.NoError(t, cart.AddItem(product("pt-turmeric", domain.SourcePatel, "3.49"), 1))
	quote := domain.NewQuote(cart, domain.DeliveryModeDelivery, domain.DefaultPricingPolicy())
	order := domain.NewOrder("order-1", cart, quote, time.Now())

	require.NoError(t, p.PublishOrderPlaced(context.Background(), order))

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicOrderPlaced, pub.topics[0])
	assert.Equal(t, AggregateTypeOrder, pub.events[0].AggregateType)

	var data OrderPlacedData
	require.NoError(t, pub.events[0].UnmarshalData(&data))
	assert.Equal(t, "order-1", data.OrderID)
	assert.Equal(t, 3, data.Lines)
	assert.Equal(t, []domain.Source{domain.SourcePatel, domain.SourceNeoMart}, data.Sources)
	assert.True(t, quote.Total.Equal(data.Total))
}

func TestPublish_TransportError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker unreachable")}
	p := NewProducer(pub, discardLogger())

	err := p.PublishCartCleared(context.Background(), "sess-1", ClearReasonUser)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish neomart.cart.cleared event")
	assert.Contains(t, err.Error(), "broker unreachable")
}

func TestProducer_Close(t *testing.T) {
	pub := &recordingPublisher{}
	require.NoError(t, NewProducer(pub, discardLogger()).Close())
	assert.True(t, pub.closed)
}

func TestNoopPublisher(t *testing.T) {
	p := NewProducer(NewNoopPublisher(discardLogger()), discardLogger())

	assert.NoError(t, p.PublishCartCleared(context.Background(), "sess-1", ClearReasonUser))
	assert.NoError(t, p.Close())
}
