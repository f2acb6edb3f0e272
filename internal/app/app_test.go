package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patelpratyush/neomart-demo/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		LogLevel:        "error",
		HTTPPort:        8080,
		ShutdownTimeout: time.Second,
		CartStore:       config.StoreMemory,
		CartTTL:         1,
		OrderStore:      config.StoreMemory,
		SlowQuery:       200 * time.Millisecond,
		EventBroker:     config.BrokerNone,
		DeliveryFee:     "4.99",
		TaxRate:         "0.08",
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
		CORSOrigins:     []string{"*"},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "flow-session")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// runShoppingFlow adds two items, checks out for pickup and reads the order
// back through the wired HTTP stack.
func runShoppingFlow(t *testing.T, a *App) {
	t.Helper()
	srv := httptest.NewServer(a.httpServer.Handler)
	defer srv.Close()

	status, _ := call(t, srv, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "pt-toor-dal", "quantity": 2})
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, srv, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "hm-kimchi", "quantity": 1})
	require.Equal(t, http.StatusOK, status)

	status, env := call(t, srv, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, status)
	var cart struct {
		TotalItems int `json:"total_items"`
		Version    int `json:"version"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Equal(t, 3, cart.TotalItems)
	assert.Equal(t, 2, cart.Version)

	status, env = call(t, srv, http.MethodPost, "/api/v1/checkout/orders", map[string]any{"mode": "pickup"})
	require.Equal(t, http.StatusCreated, status)
	var order struct {
		ID    string `json:"id"`
		Total string `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	// 2 × 6.99 + 7.99 = 21.97, tax 1.76
	assert.Equal(t, "23.73", order.Total)

	status, _ = call(t, srv, http.MethodGet, "/api/v1/orders/"+order.ID, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = call(t, srv, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Equal(t, 0, cart.TotalItems)
}

func TestApp_InMemoryFlow(t *testing.T) {
	a, err := NewApp(testConfig(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	runShoppingFlow(t, a)
}

func TestApp_RedisCartStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.CartStore = config.StoreRedis
	cfg.RedisAddr = mr.Addr()

	a, err := NewApp(cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	runShoppingFlow(t, a)

	srv := httptest.NewServer(a.httpServer.Handler)
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.CartStore = config.StoreRedis
	cfg.RedisAddr = addr

	_, err := NewApp(cfg, quietLogger())

	require.Error(t, err)
}

func TestApp_BadCatalogPath(t *testing.T) {
	cfg := testConfig()
	cfg.CatalogPath = "testdata/does-not-exist.json"

	_, err := NewApp(cfg, quietLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load catalog")
}
