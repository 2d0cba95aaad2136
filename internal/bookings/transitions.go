package bookings

import (
	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// allowedTransitions is the single source of truth for the booking state
// machine. Terminal states have no outgoing edges.
var allowedTransitions = map[enums.BookingStatus][]enums.BookingStatus{
	enums.BookingStatusPendingPayment: {
		enums.BookingStatusConfirmed,
		enums.BookingStatusCancelledByClient,
		enums.BookingStatusCancelledByPrestataire,
		enums.BookingStatusNoShow,
	},
	enums.BookingStatusConfirmed: {
		enums.BookingStatusInProgress,
		enums.BookingStatusCancelledByClient,
		enums.BookingStatusCancelledByPrestataire,
		enums.BookingStatusNoShow,
	},
	enums.BookingStatusInProgress: {
		enums.BookingStatusCompleted,
	},
}

// canTransition reports whether the state machine allows moving from one
// status to another.
func canTransition(from, to enums.BookingStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
