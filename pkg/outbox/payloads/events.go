package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// BookingCreatedEvent signals a new booking waiting for payment.
type BookingCreatedEvent struct {
	BookingID     uuid.UUID           `json:"booking_id"`
	ClientID      uuid.UUID           `json:"client_id"`
	PrestataireID uuid.UUID           `json:"prestataire_id"`
	ServiceID     uuid.UUID           `json:"service_id"`
	SlotID        uuid.UUID           `json:"slot_id"`
	BookingDate   time.Time           `json:"booking_date"`
	BookingTime   string              `json:"booking_time"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalCents    int64               `json:"total_cents"`
}

// BookingConfirmedEvent is emitted once the payment settles and the booking locks in.
type BookingConfirmedEvent struct {
	BookingID       uuid.UUID `json:"booking_id"`
	ClientID        uuid.UUID `json:"client_id"`
	PrestataireID   uuid.UUID `json:"prestataire_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	ConfirmedAt     time.Time `json:"confirmed_at"`
}

// BookingStartedEvent marks the start of the mission.
type BookingStartedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	ClientID      uuid.UUID `json:"client_id"`
	PrestataireID uuid.UUID `json:"prestataire_id"`
	StartedAt     time.Time `json:"started_at"`
}

// BookingCompletedEvent surfaces the realized platform fee on completion.
type BookingCompletedEvent struct {
	BookingID        uuid.UUID `json:"booking_id"`
	ClientID         uuid.UUID `json:"client_id"`
	PrestataireID    uuid.UUID `json:"prestataire_id"`
	PlatformFeeCents int64     `json:"platform_fee_cents"`
	CompletedAt      time.Time `json:"completed_at"`
}

// BookingCancelledEvent is emitted for either party's cancellation.
type BookingCancelledEvent struct {
	BookingID         uuid.UUID           `json:"booking_id"`
	ClientID          uuid.UUID           `json:"client_id"`
	PrestataireID     uuid.UUID           `json:"prestataire_id"`
	CancelledBy       enums.ActorRole     `json:"cancelled_by"`
	Status            enums.BookingStatus `json:"status"`
	RefundAmountCents int64               `json:"refund_amount_cents"`
	CancelledAt       time.Time           `json:"cancelled_at"`
	Reason            string              `json:"reason,omitempty"`
}

// BookingNoShowEvent reports a client that never turned up.
type BookingNoShowEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	ClientID      uuid.UUID `json:"client_id"`
	PrestataireID uuid.UUID `json:"prestataire_id"`
	MarkedAt      time.Time `json:"marked_at"`
}

// CreditGrantedEvent is emitted for purchase, bonus and referral entries.
type CreditGrantedEvent struct {
	AccountID     uuid.UUID          `json:"account_id"`
	UserID        uuid.UUID          `json:"user_id"`
	CreditType    enums.CreditType   `json:"credit_type"`
	Action        enums.CreditAction `json:"action"`
	Amount        int                `json:"amount"`
	BalanceAfter  int                `json:"balance_after"`
	TransactionID uuid.UUID          `json:"transaction_id"`
}

// LowBalanceEvent warns that an account dropped to the configured threshold.
type LowBalanceEvent struct {
	AccountID  uuid.UUID        `json:"account_id"`
	UserID     uuid.UUID        `json:"user_id"`
	CreditType enums.CreditType `json:"credit_type"`
	Balance    int              `json:"balance"`
	Threshold  int              `json:"threshold"`
}

// PaymentRefundedEvent mirrors the gateway refund back into the domain stream.
type PaymentRefundedEvent struct {
	BookingID         uuid.UUID          `json:"booking_id"`
	PaymentIntentID   string             `json:"payment_intent_id"`
	RefundAmountCents int64              `json:"refund_amount_cents"`
	RefundStatus      enums.RefundStatus `json:"refund_status"`
	RefundedAt        time.Time          `json:"refunded_at"`
}
