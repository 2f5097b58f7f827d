package router

import (
	"net/http"
	"time"

	"kartcore/internal/handler"
	"kartcore/internal/metrics"
	"kartcore/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Product *handler.ProductHandler
	Cart    *handler.CartHandler
	Order   *handler.OrderHandler
	Payment *handler.PaymentHandler
	Health  *handler.HealthHandler
}

// Options configures authentication and request limits.
type Options struct {
	APIKey           string
	WebhookSecret    string
	WebhookTolerance time.Duration
	RequestTimeout   time.Duration
	Metrics          *metrics.Metrics
}

// New creates a new HTTP router with all routes and middleware configured.
//
// The payment webhook is authenticated by its HMAC signature instead of the
// API key; /health and /metrics are open.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> Logging -> Metrics -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(middleware.CORS)

	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(opts.RequestTimeout))
		}

		r.With(middleware.WebhookSignature(opts.WebhookSecret, opts.WebhookTolerance, logger)).
			Post("/payments/webhook", h.Payment.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(opts.APIKey, logger))

			r.Get("/products", h.Product.GetAll)
			r.Get("/products/{productId}", h.Product.GetByID)

			r.Get("/cart", h.Cart.Get)
			r.Put("/cart/items", h.Cart.PutItem)

			r.Post("/orders", h.Order.Create)
			r.Get("/orders/{orderId}", h.Order.GetByID)

			r.Patch("/admin/orders/{orderId}/status", h.Order.UpdateStatus)
		})
	})

	return r
}
