package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// PromoCode grants bonus credits when redeemed. Single use per user.
type PromoCode struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code       string           `gorm:"column:code;not null;uniqueIndex:ux_promo_codes_code"`
	CreditType enums.CreditType `gorm:"column:credit_type;type:credit_type;not null"`
	Credits    int              `gorm:"column:credits;not null"`
	ExpiresAt  *time.Time       `gorm:"column:expires_at"`
	Active     bool             `gorm:"column:active;not null"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}
