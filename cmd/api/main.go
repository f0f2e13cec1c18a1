package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmarcano/couponhive-backend/api/routes"
	"github.com/dmarcano/couponhive-backend/internal/accounts"
	"github.com/dmarcano/couponhive-backend/internal/achievements"
	"github.com/dmarcano/couponhive-backend/internal/claims"
	"github.com/dmarcano/couponhive-backend/internal/entitlements"
	"github.com/dmarcano/couponhive-backend/internal/ledger"
	"github.com/dmarcano/couponhive-backend/internal/quota"
	billingwebhook "github.com/dmarcano/couponhive-backend/internal/webhooks/billing"
	"github.com/dmarcano/couponhive-backend/pkg/config"
	"github.com/dmarcano/couponhive-backend/pkg/db"
	"github.com/dmarcano/couponhive-backend/pkg/logger"
	"github.com/dmarcano/couponhive-backend/pkg/metrics"
	"github.com/dmarcano/couponhive-backend/pkg/migrate"
	"github.com/dmarcano/couponhive-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	accountsService, err := accounts.NewService(accounts.NewRepository(dbClient.DB()), ledgerService, cfg.Engine)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	quotaService, err := quota.NewService(quota.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create quota service", err)
		os.Exit(1)
	}

	achievementsService, err := achievements.NewService(
		achievements.NewRepository(dbClient.DB()),
		ledgerService,
		achievements.DefaultRules,
		logg,
		engineMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create achievements service", err)
		os.Exit(1)
	}

	claimsService, err := claims.NewService(
		quotaService,
		ledgerService,
		accounts.NewRepository(dbClient.DB()),
		achievementsService,
		redisClient,
		cfg.Engine,
		logg,
		engineMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create claims service", err)
		os.Exit(1)
	}

	entitlementsService, err := entitlements.NewService(
		entitlements.NewRepository(dbClient.DB()),
		dbClient,
		quotaService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlements service", err)
		os.Exit(1)
	}

	billingWebhookService, err := billingwebhook.NewService(entitlementsService, logg, engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create billing webhook service", err)
		os.Exit(1)
	}

	billingWebhookGuard, err := billingwebhook.NewIdempotencyGuard(redisClient, cfg.Billing.IdempotencyTTL, "billing")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			accountsService,
			ledgerService,
			claimsService,
			entitlementsService,
			billingWebhookService,
			billingWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
