// Package app wires together all dependencies and runs the cart service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Tausif706/FreshMart/internal/auth"
	"github.com/Tausif706/FreshMart/internal/checkout"
	"github.com/Tausif706/FreshMart/internal/config"
	"github.com/Tausif706/FreshMart/internal/event"
	"github.com/Tausif706/FreshMart/internal/gateway/postgres"
	handler "github.com/Tausif706/FreshMart/internal/handler/http"
	"github.com/Tausif706/FreshMart/internal/session"
	"github.com/Tausif706/FreshMart/internal/store"
	"github.com/Tausif706/FreshMart/pkg/database"
	"github.com/Tausif706/FreshMart/pkg/health"
	"github.com/Tausif706/FreshMart/pkg/httpclient"
	pkgkafka "github.com/Tausif706/FreshMart/pkg/kafka"
	"github.com/Tausif706/FreshMart/pkg/middleware"
	"github.com/Tausif706/FreshMart/pkg/tracing"
)

const serviceName = "cart-service"

// App holds the running service and its long-lived resources.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *redis.Client
	producer   *pkgkafka.Producer
	consumer   *pkgkafka.Consumer
	feed       *session.Feed
	httpServer *http.Server

	shutdownTracing func(context.Context) error
}

// NewApp creates an application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownTracing, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRate:   cfg.TraceSample,
		Enabled:      cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	prometheus.MustRegister(database.NewPoolStatsCollector(pool, serviceName))

	rdb, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to redis", slog.String("addr", cfg.Redis.Addr))

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	cartGW := postgres.NewCartGateway(pool)
	userGW := postgres.NewUserGateway(pool)
	orderGW := postgres.NewOrderGateway(pool)

	publisher := event.NewPublisher(producer, logger)

	carts := store.New(cartGW, logger,
		store.WithEventSink(publisher),
		store.WithOperationTimeout(cfg.GatewayTimeout),
	)

	checkoutSvc := checkout.NewService(carts, userGW, orderGW, logger,
		checkout.WithPublisher(publisher),
	)

	// Session tracking: sign-out events from the auth backend evict the
	// user's in-memory cart state without touching the persisted cart.
	observer := session.NewObserver()
	observer.Subscribe(func(e session.Event) {
		if e.Type == session.SignedOut {
			carts.Evict(e.Identity.UserID)
		}
	})

	consumer := pkgkafka.NewConsumer(
		pkgkafka.DefaultConsumerConfig(cfg.KafkaBrokers, session.TopicAuthSessions, cfg.SessionConsumerGroup),
		logger,
	)
	feed := session.NewFeed(consumer, observer, logger)

	// Auth verification goes through a circuit breaker so a flapping auth
	// backend degrades to fast 503s instead of piling up requests.
	authHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("auth"),
		logger,
	)
	authClient := auth.NewClient(authHTTP, cfg.AuthBaseURL)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	rateLimiter := middleware.RateLimit(rdb, middleware.RateLimitConfig{
		MaxRequests: cfg.RateLimitMax,
		Window:      cfg.RateLimitWindow,
	}, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterConfig{
		Carts:          carts,
		Checkout:       checkoutSvc,
		Health:         healthHandler,
		Validate:       handler.NewTokenValidator(authClient, observer),
		RateLimiter:    rateLimiter,
		CORS:           corsCfg,
		Logger:         logger,
		ServiceName:    "cart",
		RequestTimeout: cfg.RequestTimeout,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		rdb:             rdb,
		producer:        producer,
		consumer:        consumer,
		feed:            feed,
		httpServer:      httpServer,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run starts the HTTP server and the session feed, blocking until the
// context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	feedCtx, cancelFeed := context.WithCancel(ctx)
	defer cancelFeed()

	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting session feed", slog.String("topic", session.TopicAuthSessions))
		if err := a.feed.Run(feedCtx); err != nil {
			errCh <- fmt.Errorf("session feed: %w", err)
		}
	}()

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("component failed", slog.Any("error", err))
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.consumer.Close(); err != nil {
		a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	if err := a.shutdownTracing(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
