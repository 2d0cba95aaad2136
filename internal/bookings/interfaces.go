package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	"github.com/prestalink/prestalink-backend/pkg/pagination"
)

// Repository abstracts booking persistence. UpdateBookingStatus and the
// payment updates are guarded transitions so concurrent callbacks and user
// actions cannot double-apply.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateBooking(ctx context.Context, booking *models.InstantBooking) error
	FindBookingByID(ctx context.Context, id uuid.UUID) (*models.InstantBooking, error)
	ListBookingsForClient(ctx context.Context, clientID uuid.UUID, params pagination.Params) ([]models.InstantBooking, error)
	ListBookingsForPrestataire(ctx context.Context, prestataireID uuid.UUID, params pagination.Params) ([]models.InstantBooking, error)
	// ListOverdueConfirmed returns confirmed bookings whose scheduled start is
	// at or before the cutoff and that were never started.
	ListOverdueConfirmed(ctx context.Context, cutoff time.Time, limit int) ([]models.InstantBooking, error)
	// ListStalePendingPayment returns pending_payment bookings created at or
	// before the cutoff, oldest first.
	ListStalePendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]models.InstantBooking, error)
	UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, from, to enums.BookingStatus, updates map[string]interface{}) (bool, error)

	FindService(ctx context.Context, serviceID uuid.UUID) (*models.FixedPriceService, error)
	FindProviderSettings(ctx context.Context, prestataireID uuid.UUID) (*models.ProviderSettings, error)

	CreatePayment(ctx context.Context, payment *models.BookingPayment) error
	FindPaymentByIntent(ctx context.Context, paymentIntentID string) (*models.BookingPayment, error)
	FindLatestPaymentForBooking(ctx context.Context, bookingID uuid.UUID) (*models.BookingPayment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, from, to enums.PaymentStatus, updates map[string]interface{}) (bool, error)
	UpdatePaymentRefund(ctx context.Context, paymentID uuid.UUID, status enums.RefundStatus, refundAmountCents int64, refundedAt time.Time) (bool, error)
}
