package bookings

import (
	"testing"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

func TestTerminalStatesHaveNoExits(t *testing.T) {
	t.Parallel()

	terminals := []enums.BookingStatus{
		enums.BookingStatusCompleted,
		enums.BookingStatusCancelledByClient,
		enums.BookingStatusCancelledByPrestataire,
		enums.BookingStatusNoShow,
	}
	targets := []enums.BookingStatus{
		enums.BookingStatusPendingPayment,
		enums.BookingStatusConfirmed,
		enums.BookingStatusInProgress,
		enums.BookingStatusCompleted,
		enums.BookingStatusCancelledByClient,
		enums.BookingStatusCancelledByPrestataire,
		enums.BookingStatusNoShow,
	}
	for _, from := range terminals {
		for _, to := range targets {
			if canTransition(from, to) {
				t.Fatalf("terminal %s must not transition to %s", from, to)
			}
		}
	}
}

func TestHappyPathTransitions(t *testing.T) {
	t.Parallel()

	path := []enums.BookingStatus{
		enums.BookingStatusPendingPayment,
		enums.BookingStatusConfirmed,
		enums.BookingStatusInProgress,
		enums.BookingStatusCompleted,
	}
	for i := 0; i < len(path)-1; i++ {
		if !canTransition(path[i], path[i+1]) {
			t.Fatalf("expected %s -> %s to be legal", path[i], path[i+1])
		}
	}

	if canTransition(enums.BookingStatusPendingPayment, enums.BookingStatusInProgress) {
		t.Fatal("a booking must not start before confirmation")
	}
	if canTransition(enums.BookingStatusInProgress, enums.BookingStatusCancelledByClient) {
		t.Fatal("an in-progress mission cannot be cancelled")
	}
}
