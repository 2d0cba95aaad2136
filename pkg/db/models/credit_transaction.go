package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// CreditTransaction is one immutable entry in the append-only credit ledger.
// Rows are only ever inserted; a reversal is a new entry with action=refund.
type CreditTransaction struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	AccountID       uuid.UUID          `gorm:"column:account_id;type:uuid;not null;index:ix_credit_transactions_account"`
	Action          enums.CreditAction `gorm:"column:action;type:credit_action;not null"`
	Amount          int                `gorm:"column:amount;not null"`
	BalanceAfter    int                `gorm:"column:balance_after;not null"`
	PackageID       *uuid.UUID         `gorm:"column:package_id;type:uuid"`
	TaskID          *uuid.UUID         `gorm:"column:task_id;type:uuid"`
	OfferID         *uuid.UUID         `gorm:"column:offer_id;type:uuid"`
	Description     string             `gorm:"column:description;not null;default:''"`
	PaymentIntentID *string            `gorm:"column:payment_intent_id"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}
