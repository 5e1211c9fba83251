package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/posledger-backend/api/controllers"
	"github.com/angelmondragon/posledger-backend/api/middleware"
	"github.com/angelmondragon/posledger-backend/internal/checkout"
	"github.com/angelmondragon/posledger-backend/internal/discounts"
	"github.com/angelmondragon/posledger-backend/internal/orders"
	"github.com/angelmondragon/posledger-backend/internal/wallet"
	"github.com/angelmondragon/posledger-backend/pkg/config"
	"github.com/angelmondragon/posledger-backend/pkg/logger"
	"github.com/angelmondragon/posledger-backend/pkg/redis"
)

// Deps are the services and infrastructure the HTTP surface is built from.
// Idempotency and RateLimiter may be nil when Redis is not configured.
type Deps struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	RateLimiter redis.RateLimiter
	Metrics     http.Handler

	Checkout  checkout.Service
	Orders    orders.Service
	Wallet    wallet.Service
	Discounts discounts.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	discountPolicy := middleware.NewRateLimitPolicy(
		"discount_validate",
		cfg.HTTP.DiscountValidateWindow,
		cfg.HTTP.DiscountValidateLimit,
	)
	privileged := middleware.RequirePrivileged(logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.SettleOrder(deps.Checkout, logg))
			r.Get("/{code}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{code}/cancel", controllers.CancelOrder(deps.Orders, logg))
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Get("/", controllers.ListRefunds(deps.Orders, logg))
			r.With(privileged).Post("/{id}/approve", controllers.ApproveRefund(deps.Orders, logg))
			r.With(privileged).Post("/{id}/reject", controllers.RejectRefund(deps.Orders, logg))
		})

		r.Route("/wallets/{phone}", func(r chi.Router) {
			r.Get("/", controllers.GetWallet(deps.Wallet, logg))
			r.Get("/transactions", controllers.ListWalletTransactions(deps.Wallet, logg))
			r.Post("/topup", controllers.TopupWallet(deps.Wallet, logg))
			r.With(privileged).Post("/adjust", controllers.AdjustWallet(deps.Wallet, logg))
			r.With(privileged).Post("/compensate", controllers.CompensateWallet(deps.Wallet, logg))
			r.With(privileged).Get("/reconcile", controllers.ReconcileWallet(deps.Wallet, logg))
		})

		r.Route("/discount-codes", func(r chi.Router) {
			r.With(privileged).Post("/", controllers.CreateDiscount(deps.Discounts, logg))
			r.With(middleware.RateLimit(discountPolicy, deps.RateLimiter, logg)).Post("/validate", controllers.ValidateDiscount(deps.Discounts, logg))
		})
	})

	return r
}
