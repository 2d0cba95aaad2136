package promos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
)

// Repository abstracts promo persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindCodeByValue(ctx context.Context, code string) (*models.PromoCode, error)
	FindRedemption(ctx context.Context, promoCodeID, userID uuid.UUID) (*models.PromoRedemption, error)
	InsertRedemption(ctx context.Context, redemption *models.PromoRedemption) error
	SetRedemptionTransaction(ctx context.Context, redemptionID, transactionID uuid.UUID) error
	DeleteRedemption(ctx context.Context, redemptionID uuid.UUID) error
}
