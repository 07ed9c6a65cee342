package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/davidkorte/freshpress-backend/api/routes"
	"github.com/davidkorte/freshpress-backend/internal/discrepancies"
	"github.com/davidkorte/freshpress-backend/internal/fulfillment"
	"github.com/davidkorte/freshpress-backend/internal/notifications"
	"github.com/davidkorte/freshpress-backend/internal/orders"
	"github.com/davidkorte/freshpress-backend/internal/quotes"
	"github.com/davidkorte/freshpress-backend/internal/scans"
	"github.com/davidkorte/freshpress-backend/internal/telemetry"
	"github.com/davidkorte/freshpress-backend/pkg/config"
	"github.com/davidkorte/freshpress-backend/pkg/db"
	"github.com/davidkorte/freshpress-backend/pkg/instance"
	"github.com/davidkorte/freshpress-backend/pkg/logger"
	"github.com/davidkorte/freshpress-backend/pkg/migrate"
	"github.com/davidkorte/freshpress-backend/pkg/outbox"
	"github.com/davidkorte/freshpress-backend/pkg/redis"
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

	ordersRepo := orders.NewRepository(dbClient.DB())
	scansRepo := scans.NewRepository(dbClient.DB())
	discrepanciesRepo := discrepancies.NewRepository(dbClient.DB())
	quotesRepo := quotes.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	fulfillmentService, err := fulfillment.NewService(ordersRepo, dbClient, outboxService, scans.NewScanLog(scansRepo), discrepancies.NewDiscrepancyLog(discrepanciesRepo))
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	scansService, err := scans.NewService(scansRepo, ordersRepo, fulfillmentService, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create scans service", err)
		os.Exit(1)
	}

	discrepanciesService, err := discrepancies.NewService(discrepanciesRepo, ordersRepo, fulfillmentService, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create discrepancies service", err)
		os.Exit(1)
	}

	quotesService, err := quotes.NewService(quotesRepo, ordersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create quotes service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	telemetryService, err := telemetry.NewService(redisClient, cfg.Telemetry)
	if err != nil {
		logg.Error(context.Background(), "failed to create telemetry service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ordersService,
			fulfillmentService,
			scansService,
			discrepanciesService,
			quotesService,
			notificationsService,
			telemetryService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
