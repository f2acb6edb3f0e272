package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// restoreGlobals puts back the global provider and propagator after a test
// that calls InitTracer.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func useRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	restoreGlobals(t)
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("neomart-storefront")

	assert.Equal(t, "neomart-storefront", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
}

func TestInitTracer_DisabledInstallsPropagatorOnly(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := InitTracer(context.Background(), DefaultConfig("neomart-storefront"))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	assert.Equal(t, before, otel.GetTracerProvider())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "baggage")
}

func TestInitTracer_EnabledInstallsSDKProvider(t *testing.T) {
	for _, rate := range []float64{0, 0.25, 1} {
		restoreGlobals(t)
		cfg := DefaultConfig("neomart-storefront")
		cfg.Enabled = true
		cfg.Environment = "test"
		cfg.OTLPEndpoint = "127.0.0.1:0"
		cfg.SampleRate = rate

		shutdown, err := InitTracer(context.Background(), cfg)
		require.NoError(t, err, "rate %v", rate)

		_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
		assert.True(t, ok, "rate %v", rate)

		// Nothing was sampled into the batcher, so shutdown has no export to fail.
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = shutdown(ctx)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "ParentBased{root:AlwaysOnSampler,"},
		{2, "ParentBased{root:AlwaysOnSampler,"},
		{0, "ParentBased{root:AlwaysOffSampler,"},
		{-1, "ParentBased{root:AlwaysOffSampler,"},
		{0.5, "ParentBased{root:TraceIDRatioBased{0.5},"},
	}
	for _, tt := range tests {
		assert.True(t, strings.HasPrefix(sampler(tt.rate).Description(), tt.want), "rate %v: %s", tt.rate, sampler(tt.rate).Description())
	}
}

func TestStartEnd_Success(t *testing.T) {
	exporter := useRecorder(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "POST /api/v1/cart/items")
	_, span := Start(ctx, "cart.mutate", attribute.String("neomart.session_id", "sess-1"))
	End(span, nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	child := spans[0]
	assert.Equal(t, "cart.mutate", child.Name)
	assert.Equal(t, codes.Unset, child.Status.Code)
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent.SpanID())
	assert.Contains(t, child.Attributes, attribute.String("neomart.session_id", "sess-1"))
}

func TestStartEnd_Error(t *testing.T) {
	exporter := useRecorder(t)

	place := func() (err error) {
		_, span := Start(context.Background(), "checkout.place_order")
		defer func() { End(span, err) }()
		return errors.New("cart is empty")
	}
	require.Error(t, place())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "cart is empty", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}
