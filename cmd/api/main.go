package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/boostcv/backend/api/routes"
	"github.com/boostcv/backend/internal/coupons"
	"github.com/boostcv/backend/internal/downloads"
	"github.com/boostcv/backend/internal/leads"
	"github.com/boostcv/backend/internal/payments"
	asaaswebhook "github.com/boostcv/backend/internal/webhooks/asaas"
	"github.com/boostcv/backend/pkg/asaas"
	"github.com/boostcv/backend/pkg/config"
	"github.com/boostcv/backend/pkg/db"
	"github.com/boostcv/backend/pkg/logger"
	"github.com/boostcv/backend/pkg/metrics"
	"github.com/boostcv/backend/pkg/migrate"
	"github.com/boostcv/backend/pkg/redis"
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

	asaasClient, err := asaas.NewClient(context.Background(), cfg.Asaas, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create asaas client", err)
		os.Exit(1)
	}

	leadsRepo := leads.NewRepository(dbClient.DB())
	downloadsRepo := downloads.NewRepository(dbClient.DB())

	paymentService, err := payments.NewService(payments.ServiceParams{
		Gateway:  asaasClient,
		Leads:    leadsRepo,
		Invoices: payments.NewInvoiceRepository(dbClient.DB()),
		Billing:  cfg.Billing,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	couponService, err := coupons.NewService(coupons.ServiceParams{
		Tx:        dbClient,
		Coupons:   coupons.NewRepository(dbClient.DB()),
		Downloads: downloadsRepo,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	downloadService, err := downloads.NewService(downloads.ServiceParams{
		Repo:    downloadsRepo,
		Gateway: asaasClient,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create download service", err)
		os.Exit(1)
	}

	webhookGuard, err := asaaswebhook.NewIdempotencyGuard(redisClient, cfg.Billing.WebhookEventTTL, "webhook:asaas")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookService, err := asaaswebhook.NewService(asaaswebhook.ServiceParams{
		Leads:  leadsRepo,
		Guard:  webhookGuard,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"asaas_env": asaasClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			PaymentService:  paymentService,
			CouponService:   couponService,
			Downloads:       downloadService,
			WebhookService:  webhookService,
			WebhookTokens:   asaasClient,
			HTTPMetrics:     httpMetrics,
			MetricsGatherer: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
