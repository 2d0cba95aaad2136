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

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed bookings repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBooking(ctx context.Context, booking *models.InstantBooking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindBookingByID(ctx context.Context, id uuid.UUID) (*models.InstantBooking, error) {
	var booking models.InstantBooking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListBookingsForClient(ctx context.Context, clientID uuid.UUID, params pagination.Params) ([]models.InstantBooking, error) {
	return r.listBookings(ctx, "client_id = ?", clientID, params)
}

func (r *repository) ListBookingsForPrestataire(ctx context.Context, prestataireID uuid.UUID, params pagination.Params) ([]models.InstantBooking, error) {
	return r.listBookings(ctx, "prestataire_id = ?", prestataireID, params)
}

func (r *repository) listBookings(ctx context.Context, ownerClause string, ownerID uuid.UUID, params pagination.Params) ([]models.InstantBooking, error) {
	query := r.db.WithContext(ctx).
		Where(ownerClause, ownerID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var bookings []models.InstantBooking
	if err := query.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) ListOverdueConfirmed(ctx context.Context, cutoff time.Time, limit int) ([]models.InstantBooking, error) {
	var bookings []models.InstantBooking
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at IS NULL AND booking_date <= ?", enums.BookingStatusConfirmed, cutoff).
		Order("booking_date ASC, booking_time ASC").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) ListStalePendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]models.InstantBooking, error) {
	var bookings []models.InstantBooking
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at <= ?", enums.BookingStatusPendingPayment, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateBookingStatus applies a guarded status flip, reporting false when the
// booking was no longer in the expected state.
func (r *repository) UpdateBookingStatus(ctx context.Context, bookingID uuid.UUID, from, to enums.BookingStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.InstantBooking{}).
		Where("id = ? AND status = ?", bookingID, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindService(ctx context.Context, serviceID uuid.UUID) (*models.FixedPriceService, error) {
	var svc models.FixedPriceService
	if err := r.db.WithContext(ctx).First(&svc, "id = ?", serviceID).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *repository) FindProviderSettings(ctx context.Context, prestataireID uuid.UUID) (*models.ProviderSettings, error) {
	var settings models.ProviderSettings
	if err := r.db.WithContext(ctx).First(&settings, "prestataire_id = ?", prestataireID).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.BookingPayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPaymentByIntent(ctx context.Context, paymentIntentID string) (*models.BookingPayment, error) {
	var payment models.BookingPayment
	if err := r.db.WithContext(ctx).First(&payment, "payment_intent_id = ?", paymentIntentID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindLatestPaymentForBooking(ctx context.Context, bookingID uuid.UUID) (*models.BookingPayment, error) {
	var payment models.BookingPayment
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, from, to enums.PaymentStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.BookingPayment{}).
		Where("id = ? AND status = ?", paymentID, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdatePaymentRefund records refund progress, guarding against replays of the
// same refund callback.
func (r *repository) UpdatePaymentRefund(ctx context.Context, paymentID uuid.UUID, status enums.RefundStatus, refundAmountCents int64, refundedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BookingPayment{}).
		Where("id = ? AND refund_amount_cents < ?", paymentID, refundAmountCents).
		Updates(map[string]interface{}{
			"refund_status":       status,
			"refund_amount_cents": refundAmountCents,
			"refunded_at":         refundedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
