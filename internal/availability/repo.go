package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed availability repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, slot *models.AvailabilitySlot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	if err := r.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repository) FindByKey(ctx context.Context, key SlotKey) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := r.db.WithContext(ctx).
		First(&slot, "prestataire_id = ? AND date = ? AND start_time = ?", key.PrestataireID, key.Date, key.StartTime).
		Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repository) ListForPrestataire(ctx context.Context, prestataireID uuid.UUID, from, to time.Time) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	query := r.db.WithContext(ctx).
		Where("prestataire_id = ?", prestataireID).
		Order("date ASC, start_time ASC")
	if !from.IsZero() {
		query = query.Where("date >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("date <= ?", to)
	}
	if err := query.Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// Delete removes a slot only while it is still available.
func (r *repository) Delete(ctx context.Context, id, prestataireID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND prestataire_id = ? AND status = ?", id, prestataireID, enums.SlotStatusAvailable).
		Delete(&models.AvailabilitySlot{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkBooked flips available -> booked. The guarded update is what makes two
// concurrent reservations resolve to exactly one winner.
func (r *repository) MarkBooked(ctx context.Context, slotID, bookingID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("id = ? AND status = ?", slotID, enums.SlotStatusAvailable).
		Updates(map[string]interface{}{
			"status":     enums.SlotStatusBooked,
			"booking_id": bookingID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkAvailable flips booked -> available, but only for the booking that holds
// the slot.
func (r *repository) MarkAvailable(ctx context.Context, slotID, bookingID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("id = ? AND status = ? AND booking_id = ?", slotID, enums.SlotStatusBooked, bookingID).
		Updates(map[string]interface{}{
			"status":     enums.SlotStatusAvailable,
			"booking_id": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkBlocked(ctx context.Context, slotID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("id = ? AND status = ?", slotID, enums.SlotStatusAvailable).
		Update("status", enums.SlotStatusBlocked)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkUnblocked(ctx context.Context, slotID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("id = ? AND status = ?", slotID, enums.SlotStatusBlocked).
		Update("status", enums.SlotStatusAvailable)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
