package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmarcano/couponhive-backend/api/controllers"
	webhookcontrollers "github.com/dmarcano/couponhive-backend/api/controllers/webhooks"
	"github.com/dmarcano/couponhive-backend/api/middleware"
	"github.com/dmarcano/couponhive-backend/internal/accounts"
	"github.com/dmarcano/couponhive-backend/internal/claims"
	"github.com/dmarcano/couponhive-backend/internal/entitlements"
	"github.com/dmarcano/couponhive-backend/internal/ledger"
	billingwebhook "github.com/dmarcano/couponhive-backend/internal/webhooks/billing"
	"github.com/dmarcano/couponhive-backend/pkg/config"
	"github.com/dmarcano/couponhive-backend/pkg/db"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
	"github.com/dmarcano/couponhive-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	accountsService accounts.Service,
	ledgerService ledger.Service,
	claimsService claims.Service,
	entitlementsService entitlements.Service,
	billingWebhookService billingwebhook.Service,
	billingWebhookGuard *billingwebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/billing", webhookcontrollers.BillingWebhook(billingWebhookService, cfg.Billing, billingWebhookGuard, logg))
	})

	// Service-to-service surface; the marketplace gateway terminates its own
	// auth before calling in.
	r.Route("/api/internal/v1", func(r chi.Router) {
		r.Post("/accounts", controllers.RegisterAccount(accountsService, logg))
	})

	r.Route("/api/v1/me", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/entitlement", controllers.MyEntitlement(entitlementsService, logg))
		r.Get("/ledger", controllers.MyLedger(ledgerService, logg))
		r.Post("/claims", controllers.ClaimCoupon(claimsService, logg))
		r.Post("/boosts", controllers.BoostCoupon(claimsService, logg))
		r.Post("/uploads/reward", controllers.UploadReward(claimsService, logg))
		r.Post("/bonus/daily", controllers.CollectDailyBonus(claimsService, logg))
	})

	return r
}
