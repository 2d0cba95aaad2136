package enums

import "fmt"

// OutboxEventType labels the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventBookingCreated   OutboxEventType = "booking.created"
	EventBookingConfirmed OutboxEventType = "booking.confirmed"
	EventBookingStarted   OutboxEventType = "booking.started"
	EventBookingCompleted OutboxEventType = "booking.completed"
	EventBookingCancelled OutboxEventType = "booking.cancelled"
	EventBookingNoShow    OutboxEventType = "booking.no_show"
	EventCreditGranted    OutboxEventType = "credit.granted"
	EventLowBalance       OutboxEventType = "credit.low_balance"
	EventPaymentRefunded  OutboxEventType = "payment.refunded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBookingCreated,
	EventBookingConfirmed,
	EventBookingStarted,
	EventBookingCompleted,
	EventBookingCancelled,
	EventBookingNoShow,
	EventCreditGranted,
	EventLowBalance,
	EventPaymentRefunded,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateBooking       OutboxAggregateType = "instant_booking"
	AggregateCreditAccount OutboxAggregateType = "credit_account"
	AggregatePayment       OutboxAggregateType = "booking_payment"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateBooking,
	AggregateCreditAccount,
	AggregatePayment,
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxDLQErrorReason classifies why an event landed in the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// String implements fmt.Stringer.
func (o OutboxDLQErrorReason) String() string {
	return string(o)
}
