package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
	"github.com/prestalink/prestalink-backend/pkg/types"
)

// InstantBooking is the aggregate root for one fixed-price booking between a
// client and a prestataire at one slot. Status only moves through the
// settlement state machine; fields are never edited directly.
type InstantBooking struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ClientID           uuid.UUID             `gorm:"column:client_id;type:uuid;not null;index:ix_instant_bookings_client"`
	PrestataireID      uuid.UUID             `gorm:"column:prestataire_id;type:uuid;not null;index:ix_instant_bookings_prestataire"`
	ServiceID          uuid.UUID             `gorm:"column:service_id;type:uuid;not null"`
	SlotID             uuid.UUID             `gorm:"column:slot_id;type:uuid;not null"`
	BookingDate        time.Time             `gorm:"column:booking_date;type:date;not null"`
	BookingTime        string                `gorm:"column:booking_time;not null"`
	DurationMinutes    int                   `gorm:"column:duration_minutes;not null"`
	PaymentMethod      enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method;not null;default:'online'"`
	PriceCents         int64                 `gorm:"column:price_cents;not null"`
	PlatformFeeCents   int64                 `gorm:"column:platform_fee_cents;not null;default:0"`
	TotalPriceCents    int64                 `gorm:"column:total_price_cents;not null"`
	Status             enums.BookingStatus   `gorm:"column:status;type:booking_status;not null;default:'pending_payment'"`
	Notes              *string               `gorm:"column:notes"`
	CancellationReason *string               `gorm:"column:cancellation_reason"`
	Address            *string               `gorm:"column:address"`
	Location           *types.GeographyPoint `gorm:"column:location"`
	ConfirmedAt        *time.Time            `gorm:"column:confirmed_at"`
	StartedAt          *time.Time            `gorm:"column:started_at"`
	CompletedAt        *time.Time            `gorm:"column:completed_at"`
	CancelledAt        *time.Time            `gorm:"column:cancelled_at"`
	Payments           []BookingPayment      `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
