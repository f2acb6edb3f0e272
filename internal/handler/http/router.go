package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patelpratyush/neomart-demo/internal/catalog"
	"github.com/patelpratyush/neomart-demo/internal/service"
	"github.com/patelpratyush/neomart-demo/pkg/health"
	"github.com/patelpratyush/neomart-demo/pkg/middleware"
)

// catalogMaxAge is how long clients may cache catalog responses, in seconds.
const catalogMaxAge = 300

// RouterDeps holds everything NewRouter wires into the route tree.
type RouterDeps struct {
	ServiceName     string
	Catalog         *catalog.Catalog
	CartService     *service.CartService
	CheckoutService *service.CheckoutService
	Health          *health.Handler
	RateLimiter     *middleware.RateLimiter
	CORS            middleware.CORSConfig
	PprofCIDRs      []string
	Logger          *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(deps.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger, "/health", "/metrics"))
	r.Use(middleware.PrometheusMetrics(deps.ServiceName))
	r.Use(middleware.Tracing(deps.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, deps.PprofCIDRs, logger)

	catalogHandler := NewCatalogHandler(deps.Catalog, logger)
	cartHandler := NewCartHandler(deps.CartService, logger)
	checkoutHandler := NewCheckoutHandler(deps.CheckoutService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Handler)
		}
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(catalogMaxAge))

			r.Get("/categories", catalogHandler.ListCategories)
			r.Get("/categories/{slug}", catalogHandler.GetCategory)
			r.Get("/categories/{slug}/corners", catalogHandler.ListCorners)

			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{id}", catalogHandler.GetProduct)
			r.Get("/products/{id}/substitutes", catalogHandler.ListSubstitutes)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession())
			r.Use(middleware.NoStore)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Get("/groups", cartHandler.GetGroups)

				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{productId}", cartHandler.UpdateItemQuantity)
				r.Delete("/items/{productId}", cartHandler.RemoveItem)
			})

			r.Get("/checkout/quote", checkoutHandler.GetQuote)
			r.Post("/checkout/orders", checkoutHandler.PlaceOrder)

			r.Get("/orders", checkoutHandler.ListOrders)
			r.Get("/orders/{id}", checkoutHandler.GetOrder)
		})
	})

	return r
}
