package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/prestalink/prestalink-backend/internal/availability"
	"github.com/prestalink/prestalink-backend/internal/bookings"
	"github.com/prestalink/prestalink-backend/internal/commission"
	"github.com/prestalink/prestalink-backend/internal/credits"
	"github.com/prestalink/prestalink-backend/internal/cron"
	"github.com/prestalink/prestalink-backend/internal/notifications"
	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db"
	"github.com/prestalink/prestalink-backend/pkg/logger"
	"github.com/prestalink/prestalink-backend/pkg/metrics"
	"github.com/prestalink/prestalink-backend/pkg/migrate"
	"github.com/prestalink/prestalink-backend/pkg/outbox"
	"github.com/prestalink/prestalink-backend/pkg/redis"
	"github.com/prestalink/prestalink-backend/pkg/stripe"
)


func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	bookingService, err := bookings.NewService(
		bookings.NewRepository(dbClient.DB()),
		availability.NewRepository(dbClient.DB()),
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

	noShowJob, err := cron.NewNoShowJob(cron.NoShowJobParams{
		Logger:   logg,
		Bookings: bookingService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create no-show job", err)
		os.Exit(1)
	}
	paymentReconcileJob, err := cron.NewPaymentReconcileJob(cron.PaymentReconcileJobParams{
		Logger:   logg,
		Bookings: bookingService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment reconcile job", err)
		os.Exit(1)
	}
	passExpiryJob, err := cron.NewPassExpiryJob(cron.PassExpiryJobParams{
		Logger:  logg,
		Credits: creditService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pass expiry job", err)
		os.Exit(1)
	}
	ledgerReconcileJob, err := cron.NewLedgerReconcileJob(cron.LedgerReconcileJobParams{
		Logger:   logg,
		Accounts: creditsRepo,
		Credits:  creditService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger reconcile job", err)
		os.Exit(1)
	}
	notificationPurgeJob, err := cron.NewNotificationPurgeJob(cron.NotificationPurgeJobParams{
		Logger:        logg,
		Notifications: notificationsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification purge job", err)
		os.Exit(1)
	}
	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  int(cfg.Outbox.RetentionAge.Hours() / 24),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(
		noShowJob,
		paymentReconcileJob,
		passExpiryJob,
		ledgerReconcileJob,
		notificationPurgeJob,
		outboxRetentionJob,
	)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
