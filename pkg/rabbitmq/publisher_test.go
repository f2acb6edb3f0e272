package rabbitmq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patelpratyush/neomart-demo/pkg/events"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable).Error(0)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, msg).Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPublisher_DeclaresExchange(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", DefaultExchange, "topic", true).Return(nil)

	p, err := newPublisher(ch, "", quietLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultExchange, p.exchange)
	ch.AssertExpectations(t)
}

func TestNewPublisher_DeclareFails(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", "custom", "topic", true).Return(errors.New("access refused"))

	_, err := newPublisher(ch, "custom", quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declare exchange custom")
}

func TestPublish_SendsPersistentJSON(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", DefaultExchange, "topic", true).Return(nil)

	event, err := events.NewEvent("order.placed", "ord-1", "order", "storefront", map[string]string{"number": "ORD1"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1")

	ch.On("PublishWithContext", DefaultExchange, "neomart.order.placed", mock.MatchedBy(func(msg amqp.Publishing) bool {
		decoded, err := events.Unmarshal(msg.Body)
		return err == nil &&
			decoded.EventID == event.EventID &&
			msg.ContentType == "application/json" &&
			msg.DeliveryMode == amqp.Persistent &&
			msg.MessageId == event.EventID &&
			msg.CorrelationId == "corr-1" &&
			msg.Type == "order.placed"
	})).Return(nil)

	p, err := newPublisher(ch, "", quietLogger())
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "neomart.order.placed", event))
	ch.AssertExpectations(t)
}

func TestPublish_Error(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", DefaultExchange, "topic", true).Return(nil)
	ch.On("PublishWithContext", DefaultExchange, "neomart.cart.updated", mock.Anything).Return(amqp.ErrClosed)

	p, err := newPublisher(ch, "", quietLogger())
	require.NoError(t, err)

	event, err := events.NewEvent("cart.updated", "sess-1", "cart", "storefront", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "neomart.cart.updated", event)
	require.Error(t, err)
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestPingAndClose_WithoutConnection(t *testing.T) {
	ch := new(mockChannel)
	ch.On("ExchangeDeclare", DefaultExchange, "topic", true).Return(nil)
	ch.On("Close").Return(nil)

	p, err := newPublisher(ch, "", quietLogger())
	require.NoError(t, err)

	assert.NoError(t, p.Ping(context.Background()))
	assert.NoError(t, p.Close())
	ch.AssertExpectations(t)
}
