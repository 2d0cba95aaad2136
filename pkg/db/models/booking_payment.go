package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// BookingPayment tracks one payment attempt for an instant booking. The
// external intent id is unique so gateway callbacks stay idempotent.
type BookingPayment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BookingID         uuid.UUID           `gorm:"column:booking_id;type:uuid;not null;index:ix_booking_payments_booking"`
	PaymentIntentID   string              `gorm:"column:payment_intent_id;not null;uniqueIndex:ux_booking_payments_intent"`
	AmountCents       int64               `gorm:"column:amount_cents;not null"`
	Status            enums.PaymentStatus `gorm:"column:status;type:booking_payment_status;not null;default:'pending'"`
	RefundStatus      enums.RefundStatus  `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	RefundAmountCents int64               `gorm:"column:refund_amount_cents;not null;default:0"`
	FailureReason     *string             `gorm:"column:failure_reason"`
	SucceededAt       *time.Time          `gorm:"column:succeeded_at"`
	RefundedAt        *time.Time          `gorm:"column:refunded_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
