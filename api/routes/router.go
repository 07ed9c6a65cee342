package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidkorte/freshpress-backend/api/controllers"
	"github.com/davidkorte/freshpress-backend/api/middleware"
	"github.com/davidkorte/freshpress-backend/internal/discrepancies"
	"github.com/davidkorte/freshpress-backend/internal/fulfillment"
	"github.com/davidkorte/freshpress-backend/internal/notifications"
	"github.com/davidkorte/freshpress-backend/internal/orders"
	"github.com/davidkorte/freshpress-backend/internal/quotes"
	"github.com/davidkorte/freshpress-backend/internal/scans"
	"github.com/davidkorte/freshpress-backend/internal/telemetry"
	"github.com/davidkorte/freshpress-backend/pkg/config"
	"github.com/davidkorte/freshpress-backend/pkg/db"
	"github.com/davidkorte/freshpress-backend/pkg/enums"
	"github.com/davidkorte/freshpress-backend/pkg/logger"
	"github.com/davidkorte/freshpress-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersService orders.Service,
	fulfillmentService fulfillment.Service,
	scansService scans.Service,
	discrepanciesService discrepancies.Service,
	quotesService quotes.Service,
	notificationsService notifications.Service,
	telemetryService telemetry.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	// A typed-nil *redis.Client must not reach the interface-valued middlewares.
	var idempotencyStore redis.IdempotencyStore
	var scanLimiterStore middleware.RateLimiterStore
	if redisClient != nil {
		idempotencyStore = redisClient
		scanLimiterStore = redisClient
	}

	scanPolicy := middleware.NewScanRateLimitPolicy(
		"scan",
		cfg.RateLimit.ScanWindow,
		cfg.RateLimit.ScanLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleCustomer), logg))

			r.Post("/orders", controllers.CreateOrder(ordersService, logg))
			r.Get("/orders", controllers.ListOrders(ordersService, logg))

			r.Post("/quotes", controllers.CreateQuote(quotesService, logg))
			r.Get("/quotes", controllers.ListMyQuotes(quotesService, logg))
			r.Post("/quotes/{quoteId}/accept", controllers.AcceptQuote(quotesService, logg))

			r.Post("/discrepancies/{discrepancyId}/decision", controllers.DecideDiscrepancy(discrepanciesService, logg))

			r.Get("/notifications", controllers.ListNotifications(notificationsService, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		// Order and quote reads are shared: customers see their own, staff see any.
		r.Get("/orders/{orderId}", controllers.GetOrder(ordersService, logg))
		r.Get("/quotes/{quoteId}", controllers.GetQuote(quotesService, logg))
		r.Post("/quotes/{quoteId}/decline", controllers.DeclineQuote(quotesService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg,
				string(enums.RoleFacility),
				string(enums.RoleAdmin),
			))
			r.Get("/orders/{orderId}/scans", controllers.OrderScanHistory(scansService, logg))
			r.Get("/orders/{orderId}/discrepancies", controllers.ListOrderDiscrepancies(discrepanciesService, logg))
		})

		r.Route("/driver", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleDriver), logg))
			r.With(middleware.ScanRateLimit(scanPolicy, scanLimiterStore, logg)).
				Post("/scans", controllers.ScanVerify(scansService, logg))
			r.Post("/orders/{orderId}/pod", controllers.SubmitProof(scansService, logg))
			r.Post("/location", controllers.RecordLocation(telemetryService, logg))
		})

		r.Route("/facility", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg,
				string(enums.RoleFacility),
				string(enums.RoleAdmin),
			))
			r.Post("/orders/{orderId}/discrepancies", controllers.ReportDiscrepancy(discrepanciesService, logg))
			r.Post("/quotes/{quoteId}/price", controllers.PriceQuote(quotesService, logg))
			r.Get("/quotes/pending", controllers.ListPendingQuotes(quotesService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))
			r.Post("/orders/{orderId}/status", controllers.AdvanceOrderStatus(fulfillmentService, logg))
			r.Get("/drivers/{driverId}/location", controllers.DriverLastLocation(telemetryService, logg))
		})
	})

	return r
}
