package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tausif706/FreshMart/internal/checkout"
	"github.com/Tausif706/FreshMart/internal/store"
	"github.com/Tausif706/FreshMart/pkg/health"
	"github.com/Tausif706/FreshMart/pkg/middleware"
)

// RouterConfig carries the dependencies and knobs for the HTTP router.
type RouterConfig struct {
	Carts          *store.Store
	Checkout       *checkout.Service
	Health         *health.Handler
	Validate       middleware.TokenValidator
	RateLimiter    func(http.Handler) http.Handler
	CORS           middleware.CORSConfig
	Logger         *slog.Logger
	ServiceName    string
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all cart service routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	cartHandler := NewCartHandler(cfg.Carts, cfg.Logger)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, cfg.Logger)

	// The limiter keys budgets by user ID when one is present, so it must
	// run after the auth middlewares have populated the request context.
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Reading the cart works signed out; anonymous callers get an
		// empty inert cart.
		r.With(middleware.OptionalAuth(cfg.Validate), limiter).Get("/cart", cartHandler.GetCart)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Validate))
			r.Use(limiter)

			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{itemID}", cartHandler.UpdateQuantity)
			r.Delete("/cart/items/{itemID}", cartHandler.RemoveItem)

			r.Post("/checkout", checkoutHandler.Checkout)
		})
	})

	return r
}
