package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/patelpratyush/neomart-demo/internal/catalog"
	"github.com/patelpratyush/neomart-demo/internal/config"
	"github.com/patelpratyush/neomart-demo/internal/domain"
	"github.com/patelpratyush/neomart-demo/internal/event"
	handler "github.com/patelpratyush/neomart-demo/internal/handler/http"
	"github.com/patelpratyush/neomart-demo/internal/repository"
	"github.com/patelpratyush/neomart-demo/internal/repository/memory"
	pgrepo "github.com/patelpratyush/neomart-demo/internal/repository/postgres"
	redisrepo "github.com/patelpratyush/neomart-demo/internal/repository/redis"
	"github.com/patelpratyush/neomart-demo/internal/service"
	"github.com/patelpratyush/neomart-demo/pkg/database"
	"github.com/patelpratyush/neomart-demo/pkg/health"
	pkgkafka "github.com/patelpratyush/neomart-demo/pkg/kafka"
	"github.com/patelpratyush/neomart-demo/pkg/middleware"
	"github.com/patelpratyush/neomart-demo/pkg/rabbitmq"
)

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	pool       *pgxpool.Pool
	producer   *event.Producer
	limiter    *middleware.RateLimiter
	limiterCh  chan struct{}
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger, limiterCh: make(chan struct{})}
	healthHandler := health.NewHandler().WithService(config.ServiceName)

	database.SetSlowQueryLogging(cfg.SlowQuery, logger)

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded",
		slog.Int("products", cat.Len()),
		slog.Int("categories", len(cat.Categories())),
	)

	carts, err := a.cartRepository(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	orders, err := a.orderRepository(ctx, healthHandler)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	publisher, err := a.eventPublisher(healthHandler)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.producer = event.NewProducer(publisher, logger)

	// Build the dependency graph.
	fee, taxRate := cfg.Pricing()
	policy := domain.PricingPolicy{DeliveryFee: fee, TaxRate: taxRate}
	cartTTL := cfg.CartTTLDuration()

	cartService := service.NewCartService(carts, cat, a.producer, logger, cartTTL)
	checkoutService := service.NewCheckoutService(carts, orders, a.producer, logger, policy, cfg.OrderDelay)

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterDeps{
		ServiceName:     config.ServiceName,
		Catalog:         cat,
		CartService:     cartService,
		CheckoutService: checkoutService,
		Health:          healthHandler,
		RateLimiter:     a.limiter,
		CORS:            corsCfg,
		PprofCIDRs:      cfg.PprofCIDRs,
		Logger:          logger,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		cat, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("load embedded catalog: %w", err)
		}
		return cat, nil
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogPath, err)
	}
	return cat, nil
}

func (a *App) cartRepository(ctx context.Context, hh *health.Handler) (repository.CartRepository, error) {
	if a.cfg.CartStore != config.StoreRedis {
		a.logger.Info("using in-memory cart store")
		return memory.NewCartRepository(), nil
	}

	rdb, err := database.NewRedisClient(ctx, a.cfg.Redis())
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis",
		slog.String("addr", a.cfg.RedisAddr),
		slog.Int("db", a.cfg.RedisDB),
	)

	repo := redisrepo.NewCartRepository(rdb, a.cfg.CartTTLDuration())
	hh.RegisterCritical("redis", repo.Ping)
	return repo, nil
}

func (a *App) orderRepository(ctx context.Context, hh *health.Handler) (repository.OrderRepository, error) {
	if a.cfg.OrderStore != config.StorePostgres {
		a.logger.Info("using in-memory order store")
		return memory.NewOrderRepository(), nil
	}

	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool

	if err := database.RunMigrations(ctx, pool, pgrepo.Migrations(), a.logger); err != nil {
		return nil, err
	}
	if err := database.RegisterPoolMetrics(nil, pool, config.ServiceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	hh.RegisterCritical("postgres", pool.Ping)
	return pgrepo.NewOrderRepository(pool), nil
}

func (a *App) eventPublisher(hh *health.Handler) (event.Publisher, error) {
	switch a.cfg.EventBroker {
	case config.BrokerKafka:
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
		hh.RegisterNonCritical("kafka", producer.Ping)
		a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))
		return producer, nil

	case config.BrokerRabbitMQ:
		publisher, err := rabbitmq.Dial(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.logger)
		if err != nil {
			return nil, err
		}
		hh.RegisterNonCritical("rabbitmq", publisher.Ping)
		a.logger.Info("rabbitmq publisher initialized", slog.String("exchange", a.cfg.AMQPExchange))
		return publisher, nil

	default:
		a.logger.Info("event broker disabled, domain events are dropped")
		return event.NewNoopPublisher(a.logger), nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.limiter.Run(a.limiterCh)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	close(a.limiterCh)

	if err := a.producer.Close(); err != nil {
		a.logger.Error("event publisher close error", slog.String("error", err.Error()))
	}

	a.closeStores()

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeStores() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
