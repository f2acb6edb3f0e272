package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patelpratyush/neomart-demo/pkg/events"
)

func TestPublish_RecordsMetrics(t *testing.T) {
	const topic = "metrics-test-publish"

	published := testutil.ToFloat64(messagesPublished.WithLabelValues(topic))
	failed := testutil.ToFloat64(publishErrors.WithLabelValues(topic, reasonWrite))

	event, err := events.NewEvent("cart.updated", "sess-1", "cart", "storefront", nil)
	require.NoError(t, err)

	ok := newProducer(&fakeWriter{}, nil, quietLogger())
	require.NoError(t, ok.Publish(context.Background(), topic, event))
	require.NoError(t, ok.Publish(context.Background(), topic, event))

	bad := newProducer(&fakeWriter{err: errors.New("down")}, nil, quietLogger())
	require.Error(t, bad.Publish(context.Background(), topic, event))

	assert.Equal(t, published+2, testutil.ToFloat64(messagesPublished.WithLabelValues(topic)))
	assert.Equal(t, failed+1, testutil.ToFloat64(publishErrors.WithLabelValues(topic, reasonWrite)))
}

func TestPublish_ObservesMessageSize(t *testing.T) {
	const topic = "metrics-test-size"

	event, err := events.NewEvent("cart.updated", "sess-2", "cart", "storefront", map[string]any{"total_items": 3})
	require.NoError(t, err)

	p := newProducer(&fakeWriter{}, nil, quietLogger())
	require.NoError(t, p.Publish(context.Background(), topic, event))

	size := histogramOf(t, messageBytes.WithLabelValues(topic))
	assert.Equal(t, uint64(1), size.GetSampleCount())
	assert.Greater(t, size.GetSampleSum(), float64(0))
	assert.Equal(t, uint64(1), histogramOf(t, publishDuration.WithLabelValues(topic)).GetSampleCount())
}

func histogramOf(t *testing.T, obs prometheus.Observer) *dto.Histogram {
	t.Helper()
	m, ok := obs.(prometheus.Metric)
	require.True(t, ok)
	out := &dto.Metric{}
	require.NoError(t, m.Write(out))
	return out.GetHistogram()
}
