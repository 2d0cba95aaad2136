package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prestalink/prestalink-backend/api/controllers"
	webhookcontrollers "github.com/prestalink/prestalink-backend/api/controllers/webhooks"
	"github.com/prestalink/prestalink-backend/api/middleware"
	"github.com/prestalink/prestalink-backend/internal/availability"
	"github.com/prestalink/prestalink-backend/internal/bookings"
	"github.com/prestalink/prestalink-backend/internal/commission"
	"github.com/prestalink/prestalink-backend/internal/credits"
	"github.com/prestalink/prestalink-backend/internal/notifications"
	"github.com/prestalink/prestalink-backend/internal/promos"
	stripewebhook "github.com/prestalink/prestalink-backend/internal/webhooks/stripe"
	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	"github.com/prestalink/prestalink-backend/pkg/logger"
	"github.com/prestalink/prestalink-backend/pkg/redis"
	"github.com/prestalink/prestalink-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	bookingService bookings.Service,
	availabilityService availability.Service,
	commissionService commission.Service,
	creditService credits.Service,
	purchaseService credits.PurchaseService,
	promoService promos.Service,
	notificationsService notifications.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/bookings", func(r chi.Router) {
			r.Get("/", controllers.ListMyBookings(bookingService, logg))
			r.Get("/{bookingId}", controllers.BookingDetail(bookingService, logg))
			r.With(middleware.RequireRole(string(enums.ActorRoleClient), logg)).
				Post("/", controllers.CreateBooking(bookingService, logg))
			r.Post("/{bookingId}/cancel", controllers.CancelBooking(bookingService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.ActorRolePrestataire), logg))
				r.Post("/{bookingId}/confirm", controllers.ConfirmBooking(bookingService, logg))
				r.Post("/{bookingId}/start", controllers.StartBooking(bookingService, logg))
				r.Post("/{bookingId}/complete", controllers.CompleteBooking(bookingService, logg))
				r.Post("/{bookingId}/no-show", controllers.MarkBookingNoShow(bookingService, logg))
			})
		})

		r.Route("/v1/availability", func(r chi.Router) {
			r.Get("/slots", controllers.ListCalendar(availabilityService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.ActorRolePrestataire), logg))
				r.Post("/slots", controllers.CreateSlots(availabilityService, logg))
				r.Post("/slots/{slotId}/block", controllers.BlockSlot(availabilityService, logg))
				r.Post("/slots/{slotId}/unblock", controllers.UnblockSlot(availabilityService, logg))
				r.Delete("/slots/{slotId}", controllers.DeleteSlot(availabilityService, logg))
			})
		})

		r.With(middleware.RequireRole(string(enums.ActorRolePrestataire), logg)).
			Get("/v1/commission/quote", controllers.CommissionQuote(commissionService, logg))

		r.Route("/v1/credits", func(r chi.Router) {
			r.Get("/balance", controllers.CreditBalance(creditService, logg))
			r.Get("/history", controllers.CreditHistory(creditService, logg))
			r.Get("/packages", controllers.ListCreditPackages(purchaseService, logg))
			r.Post("/purchase", controllers.PurchaseCredits(purchaseService, logg))
		})

		r.Post("/v1/promos/redeem", controllers.RedeemPromo(promoService, logg))

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
