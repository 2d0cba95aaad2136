package models

import (
	"time"

	"github.com/google/uuid"
)

// FixedPriceService is a published service a prestataire sells at a fixed
// price through instant booking.
type FixedPriceService struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PrestataireID   uuid.UUID `gorm:"column:prestataire_id;type:uuid;not null;index:ix_fixed_price_services_prestataire"`
	Title           string    `gorm:"column:title;not null"`
	Description     string    `gorm:"column:description;not null;default:''"`
	PriceCents      int64     `gorm:"column:price_cents;not null"`
	DurationMinutes int       `gorm:"column:duration_minutes;not null"`
	Active          bool      `gorm:"column:active;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
