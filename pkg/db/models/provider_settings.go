package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderSettings holds the per-prestataire knobs the settlement flow reads.
type ProviderSettings struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PrestataireID         uuid.UUID `gorm:"column:prestataire_id;type:uuid;not null;uniqueIndex:ux_provider_settings_prestataire"`
	AutoConfirm           bool      `gorm:"column:auto_confirm;not null"`
	FreeCancellationHours int       `gorm:"column:free_cancellation_hours;not null;default:24"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
