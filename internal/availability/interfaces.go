package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
)

// SlotKey is the natural key of one calendar slot.
type SlotKey struct {
	PrestataireID uuid.UUID
	Date          time.Time
	StartTime     string
}

// Repository abstracts calendar persistence. The Mark* methods are guarded
// transitions: they report false when the slot was not in the expected state,
// which is how concurrent reservations lose.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, slot *models.AvailabilitySlot) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AvailabilitySlot, error)
	FindByKey(ctx context.Context, key SlotKey) (*models.AvailabilitySlot, error)
	ListForPrestataire(ctx context.Context, prestataireID uuid.UUID, from, to time.Time) ([]models.AvailabilitySlot, error)
	Delete(ctx context.Context, id, prestataireID uuid.UUID) (bool, error)

	MarkBooked(ctx context.Context, slotID, bookingID uuid.UUID) (bool, error)
	MarkAvailable(ctx context.Context, slotID, bookingID uuid.UUID) (bool, error)
	MarkBlocked(ctx context.Context, slotID uuid.UUID) (bool, error)
	MarkUnblocked(ctx context.Context, slotID uuid.UUID) (bool, error)
}
