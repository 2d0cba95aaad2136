package promos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed promo repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCodeByValue(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		First(&promo, "code = ?", strings.ToUpper(strings.TrimSpace(code))).
		Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindRedemption(ctx context.Context, promoCodeID, userID uuid.UUID) (*models.PromoRedemption, error) {
	var redemption models.PromoRedemption
	err := r.db.WithContext(ctx).
		First(&redemption, "promo_code_id = ? AND user_id = ?", promoCodeID, userID).
		Error
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

func (r *repository) InsertRedemption(ctx context.Context, redemption *models.PromoRedemption) error {
	if redemption.ID == uuid.Nil {
		redemption.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) SetRedemptionTransaction(ctx context.Context, redemptionID, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PromoRedemption{}).
		Where("id = ?", redemptionID).
		Update("transaction_id", transactionID).
		Error
}

func (r *repository) DeleteRedemption(ctx context.Context, redemptionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.PromoRedemption{}, "id = ?", redemptionID).
		Error
}
