package enums

import "fmt"

// SlotStatus tracks the lifecycle of an availability slot.
type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusBlocked   SlotStatus = "blocked"
)

var validSlotStatuses = []SlotStatus{
	SlotStatusAvailable,
	SlotStatusBooked,
	SlotStatusBlocked,
}

// String implements fmt.Stringer.
func (s SlotStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SlotStatus.
func (s SlotStatus) IsValid() bool {
	for _, candidate := range validSlotStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSlotStatus converts raw input into a SlotStatus.
func ParseSlotStatus(value string) (SlotStatus, error) {
	for _, candidate := range validSlotStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid slot status %q", value)
}
