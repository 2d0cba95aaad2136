package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// CreditAccount caches the current balance for one (user, credit type) pair.
// The balance column is a projection of credit_transactions and must always
// equal the sum of its amounts; the transaction log is the source of truth.
type CreditAccount struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID             uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_credit_accounts_user_type,priority:1"`
	CreditType         enums.CreditType `gorm:"column:credit_type;type:credit_type;not null;uniqueIndex:ux_credit_accounts_user_type,priority:2"`
	Balance            int              `gorm:"column:balance;not null;default:0"`
	HasUnlimited       bool             `gorm:"column:has_unlimited;not null;default:false"`
	UnlimitedExpiresAt *time.Time       `gorm:"column:unlimited_expires_at"`
	UsedFreeCredit     bool             `gorm:"column:used_free_credit;not null;default:false"`
	Frozen             bool             `gorm:"column:frozen;not null;default:false"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
