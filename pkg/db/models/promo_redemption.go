package models

import (
	"time"

	"github.com/google/uuid"
)

// PromoRedemption records that a user consumed a promo code.
type PromoRedemption struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PromoCodeID   uuid.UUID `gorm:"column:promo_code_id;type:uuid;not null;uniqueIndex:ux_promo_redemptions_code_user,priority:1"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_promo_redemptions_code_user,priority:2"`
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
