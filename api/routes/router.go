package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightcart/storefront-backend/api/controllers"
	webhookcontrollers "github.com/brightcart/storefront-backend/api/controllers/webhooks"
	"github.com/brightcart/storefront-backend/api/middleware"
	"github.com/brightcart/storefront-backend/internal/cart"
	"github.com/brightcart/storefront-backend/internal/catalog"
	checkoutsvc "github.com/brightcart/storefront-backend/internal/checkout"
	"github.com/brightcart/storefront-backend/internal/orders"
	"github.com/brightcart/storefront-backend/internal/payments"
	squarewebhook "github.com/brightcart/storefront-backend/internal/webhooks/square"
	"github.com/brightcart/storefront-backend/pkg/config"
	"github.com/brightcart/storefront-backend/pkg/db"
	"github.com/brightcart/storefront-backend/pkg/enums"
	"github.com/brightcart/storefront-backend/pkg/logger"
	"github.com/brightcart/storefront-backend/pkg/redis"
)

type webhookSigning interface {
	SigningSecret() string
	NotificationURL() string
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       db.Pinger
	Redis          *redis.Client
	CartService    cart.Service
	CatalogService catalog.Service
	Checkout       checkoutsvc.Service
	OrdersService  orders.Service
	Payments       payments.Service
	Webhooks       squarewebhook.Service
	WebhookSigning webhookSigning
}

// NewRouter assembles the full HTTP surface.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	cartPolicy := middleware.RateLimitPolicy{Name: "cart", Window: cfg.RateLimit.CartWindow, Limit: cfg.RateLimit.CartLimit}
	checkoutPolicy := middleware.RateLimitPolicy{Name: "checkout", Window: cfg.RateLimit.CheckoutWindow, Limit: cfg.RateLimit.CheckoutLimit}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.Redis))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.Square(deps.Webhooks, deps.WebhookSigning, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// public catalog
		r.Get("/products", controllers.ProductList(deps.CatalogService, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(deps.CatalogService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Use(middleware.RateLimit(cartPolicy, deps.Redis, logg))
				r.Get("/", controllers.CartFetch(deps.CartService, logg))
				r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
				r.Patch("/items/{unitId}", controllers.CartSetQuantity(deps.CartService, logg))
				r.Delete("/items/{unitId}", controllers.CartRemoveItem(deps.CartService, logg))
				r.Delete("/", controllers.CartClear(deps.CartService, logg))
			})

			r.With(middleware.RateLimit(checkoutPolicy, deps.Redis, logg)).
				Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(deps.OrdersService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersService, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.OrdersService, logg))
				r.Post("/{orderId}/payment-link", controllers.OrderRefreshPaymentLink(deps.Payments, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.ActorRoleMerchant), logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.OrdersService, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(deps.OrdersService, logg))
			r.Post("/{orderId}/ship", controllers.AdminOrderShip(deps.OrdersService, logg))
			r.Post("/{orderId}/deliver", controllers.AdminOrderDeliver(deps.OrdersService, logg))
			r.Post("/{orderId}/cancel", controllers.AdminOrderCancel(deps.OrdersService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.CatalogService, logg))
			r.Post("/", controllers.AdminProductCreate(deps.CatalogService, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.CatalogService, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(deps.CatalogService, logg))
		})
		r.Post("/stock/adjust", controllers.AdminStockAdjust(deps.CatalogService, logg))
	})

	return r
}
