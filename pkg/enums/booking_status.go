package enums

import "fmt"

// BookingStatus tracks the lifecycle of an instant booking.
type BookingStatus string

const (
	BookingStatusPendingPayment         BookingStatus = "pending_payment"
	BookingStatusConfirmed              BookingStatus = "confirmed"
	BookingStatusInProgress             BookingStatus = "in_progress"
	BookingStatusCompleted              BookingStatus = "completed"
	BookingStatusCancelledByClient      BookingStatus = "cancelled_by_client"
	BookingStatusCancelledByPrestataire BookingStatus = "cancelled_by_prestataire"
	BookingStatusNoShow                 BookingStatus = "no_show"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPendingPayment,
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusCompleted,
	BookingStatusCancelledByClient,
	BookingStatusCancelledByPrestataire,
	BookingStatusNoShow,
}

// String implements fmt.Stringer.
func (b BookingStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BookingStatus.
func (b BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions may leave this status.
func (b BookingStatus) IsTerminal() bool {
	switch b {
	case BookingStatusCompleted,
		BookingStatusCancelledByClient,
		BookingStatusCancelledByPrestataire,
		BookingStatusNoShow:
		return true
	}
	return false
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}
