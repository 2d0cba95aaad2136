package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// AvailabilitySlot is one bookable window in a prestataire's calendar.
// (prestataire_id, date, start_time) is the natural key; only the booking
// settlement flow may flip a slot from available to booked.
type AvailabilitySlot struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	PrestataireID uuid.UUID        `gorm:"column:prestataire_id;type:uuid;not null;uniqueIndex:ux_availability_slots_key,priority:1"`
	Date          time.Time        `gorm:"column:date;type:date;not null;uniqueIndex:ux_availability_slots_key,priority:2"`
	StartTime     string           `gorm:"column:start_time;not null;uniqueIndex:ux_availability_slots_key,priority:3"`
	EndTime       string           `gorm:"column:end_time;not null"`
	Status        enums.SlotStatus `gorm:"column:status;type:slot_status;not null;default:'available'"`
	BookingID     *uuid.UUID       `gorm:"column:booking_id;type:uuid"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
