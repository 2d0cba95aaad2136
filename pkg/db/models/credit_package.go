package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// CreditPackage is a purchasable bundle of credits, optionally carrying an
// unlimited pass for a fixed number of days instead of a credit amount.
type CreditPackage struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	CreditType    enums.CreditType `gorm:"column:credit_type;type:credit_type;not null"`
	Credits       int              `gorm:"column:credits;not null;default:0"`
	UnlimitedDays int              `gorm:"column:unlimited_days;not null;default:0"`
	PriceCents    int64            `gorm:"column:price_cents;not null"`
	Active        bool             `gorm:"column:active;not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
