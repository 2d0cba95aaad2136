package enums

import "fmt"

// NotificationType labels the user-facing notifications the core produces.
type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "booking_confirmed"
	NotificationBookingStarted   NotificationType = "booking_started"
	NotificationBookingCompleted NotificationType = "booking_completed"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationBookingNoShow    NotificationType = "booking_no_show"
	NotificationCreditGranted    NotificationType = "credit_granted"
	NotificationLowBalance       NotificationType = "low_balance"
)

var validNotificationTypes = []NotificationType{
	NotificationBookingConfirmed,
	NotificationBookingStarted,
	NotificationBookingCompleted,
	NotificationBookingCancelled,
	NotificationBookingNoShow,
	NotificationCreditGranted,
	NotificationLowBalance,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
