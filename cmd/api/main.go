package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/prestalink/prestalink-backend/api/routes"
	"github.com/prestalink/prestalink-backend/internal/availability"
	"github.com/prestalink/prestalink-backend/internal/bookings"
	"github.com/prestalink/prestalink-backend/internal/commission"
	"github.com/prestalink/prestalink-backend/internal/credits"
	"github.com/prestalink/prestalink-backend/internal/notifications"
	"github.com/prestalink/prestalink-backend/internal/promos"
	stripewebhook "github.com/prestalink/prestalink-backend/internal/webhooks/stripe"
	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db"
	"github.com/prestalink/prestalink-backend/pkg/logger"
	"github.com/prestalink/prestalink-backend/pkg/migrate"
	"github.com/prestalink/prestalink-backend/pkg/outbox"
	"github.com/prestalink/prestalink-backend/pkg/redis"
	"github.com/prestalink/prestalink-backend/pkg/stripe"
)

const webhookGuardTTL = 7 * 24 * time.Hour

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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}
	stripeGateway, err := stripe.NewGateway(stripeClient, cfg.Stripe.RequestTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe gateway", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	availabilityRepo := availability.NewRepository(dbClient.DB())
	availabilityService, err := availability.NewService(availabilityRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}

	commissionCalc, err := commission.NewCalculator(cfg.Commission)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission calculator", err)
		os.Exit(1)
	}
	commissionService, err := commission.NewService(commission.NewRepository(dbClient.DB()), commissionCalc)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}

	creditsRepo := credits.NewRepository(dbClient.DB())
	creditService, err := credits.NewService(creditsRepo, dbClient, outboxService, cfg.Credits)
	if err != nil {
		logg.Error(context.Background(), "failed to create credit ledger", err)
		os.Exit(1)
	}
	purchaseService, err := credits.NewPurchaseService(
		creditsRepo,
		dbClient,
		creditService,
		credits.NewStripePurchaseGateway(stripeGateway),
		cfg.Booking.Currency,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase service", err)
		os.Exit(1)
	}

	promoService, err := promos.NewService(promos.NewRepository(dbClient.DB()), creditService, cfg.Credits)
	if err != nil {
		logg.Error(context.Background(), "failed to create promo service", err)
		os.Exit(1)
	}

	bookingService, err := bookings.NewService(
		bookings.NewRepository(dbClient.DB()),
		availabilityRepo,
		commissionService,
		bookings.NewStripeGateway(stripeGateway),
		dbClient,
		outboxService,
		cfg.Booking,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookGuardTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	// The controller owns replay protection, so the service runs unguarded.
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Bookings:  bookingService,
		Purchases: purchaseService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			bookingService,
			availabilityService,
			commissionService,
			creditService,
			purchaseService,
			promoService,
			notificationsService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
