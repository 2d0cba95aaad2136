package commission

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed commission repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CountCompletedMissions(ctx context.Context, prestataireID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InstantBooking{}).
		Where("prestataire_id = ? AND status = ?", prestataireID, enums.BookingStatusCompleted).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
