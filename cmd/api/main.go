package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JEMsword1976/netflix-skipper/api/routes"
	"github.com/JEMsword1976/netflix-skipper/internal/checkout"
	"github.com/JEMsword1976/netflix-skipper/internal/licensing"
	paddlewebhook "github.com/JEMsword1976/netflix-skipper/internal/webhooks/paddle"
	"github.com/JEMsword1976/netflix-skipper/pkg/config"
	"github.com/JEMsword1976/netflix-skipper/pkg/googleauth"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
	"github.com/JEMsword1976/netflix-skipper/pkg/metrics"
	"github.com/JEMsword1976/netflix-skipper/pkg/paddle"
	"github.com/JEMsword1976/netflix-skipper/pkg/redis"
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

	paddleClient, err := paddle.NewClient(context.Background(), cfg.Paddle, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paddle client", err)
		os.Exit(1)
	}

	verifier, err := googleauth.New(cfg.Google.ClientID)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity verifier", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	licenseMetrics := metrics.NewLicenseMetrics(registry)

	store, err := licensing.NewRedisStore(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create license store", err)
		os.Exit(1)
	}

	reconciler := licensing.NewReconciler(licensing.PlanClassifier{
		MonthlyPriceID: cfg.Paddle.PriceMonthly,
		YearlyPriceID:  cfg.Paddle.PriceYearly,
	}, cfg.License.ExpiryAfter())

	licenseService, err := licensing.NewService(licensing.ServiceParams{
		Store:      store,
		Verifier:   verifier,
		Reconciler: reconciler,
		License:    cfg.License,
		Metrics:    licenseMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create license service", err)
		os.Exit(1)
	}

	webhookGuard, err := paddlewebhook.NewIdempotencyGuard(redisClient, cfg.Paddle.EventTTL, "paddle")
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	webhookService, err := paddlewebhook.NewService(paddlewebhook.ServiceParams{
		Store:      store,
		Reconciler: reconciler,
		Normalizer: paddlewebhook.NewNormalizer(paddleClient),
		Guard:      webhookGuard,
		Metrics:    licenseMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Paddle: paddleClient,
		Config: cfg.Paddle,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			Redis:           redisClient,
			LicenseService:  licenseService,
			WebhookService:  webhookService,
			CheckoutService: checkoutService,
			Verifier:        paddleClient.Verifier(),
			Registry:        registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
