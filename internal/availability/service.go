package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db"
	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
)

const timeLayout = "15:04"

// SlotWindow is one requested window when publishing calendar slots.
type SlotWindow struct {
	StartTime string
	EndTime   string
}

// Service manages a prestataire's calendar. Reservation itself is a guarded
// status flip, so two clients racing for the same slot resolve to one winner.
type Service interface {
	CreateSlots(ctx context.Context, prestataireID uuid.UUID, date time.Time, windows []SlotWindow) ([]models.AvailabilitySlot, error)
	ListCalendar(ctx context.Context, prestataireID uuid.UUID, from, to time.Time) ([]models.AvailabilitySlot, error)
	Reserve(ctx context.Context, slotID, bookingID uuid.UUID) error
	Release(ctx context.Context, slotID, bookingID uuid.UUID) error
	Block(ctx context.Context, prestataireID, slotID uuid.UUID) error
	Unblock(ctx context.Context, prestataireID, slotID uuid.UUID) error
	DeleteSlot(ctx context.Context, prestataireID, slotID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds an availability service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateSlots(ctx context.Context, prestataireID uuid.UUID, date time.Time, windows []SlotWindow) ([]models.AvailabilitySlot, error) {
	if prestataireID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prestataire id required")
	}
	if date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot date required")
	}
	if len(windows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one slot window required")
	}

	created := make([]models.AvailabilitySlot, 0, len(windows))
	for _, window := range windows {
		if err := validateWindow(window); err != nil {
			return nil, err
		}
		slot := models.AvailabilitySlot{
			PrestataireID: prestataireID,
			Date:          date,
			StartTime:     window.StartTime,
			EndTime:       window.EndTime,
			Status:        enums.SlotStatusAvailable,
		}
		if err := s.repo.Create(ctx, &slot); err != nil {
			if db.IsUniqueViolation(err, "ux_availability_slots_key") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("slot %s %s already exists", date.Format("2006-01-02"), window.StartTime))
			}
			return nil, err
		}
		created = append(created, slot)
	}
	return created, nil
}

func (s *service) ListCalendar(ctx context.Context, prestataireID uuid.UUID, from, to time.Time) ([]models.AvailabilitySlot, error) {
	if prestataireID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prestataire id required")
	}
	return s.repo.ListForPrestataire(ctx, prestataireID, from, to)
}

// Reserve claims the slot for a booking. Losing the race, a blocked slot and a
// missing slot all surface the same way to the caller.
func (s *service) Reserve(ctx context.Context, slotID, bookingID uuid.UUID) error {
	if slotID == uuid.Nil || bookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "slot id and booking id required")
	}
	ok, err := s.repo.MarkBooked(ctx, slotID, bookingID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeSlotUnavailable, fmt.Sprintf("slot %s is not available", slotID))
	}
	return nil
}

// Release frees the slot, but only for the booking that holds it.
func (s *service) Release(ctx context.Context, slotID, bookingID uuid.UUID) error {
	if slotID == uuid.Nil || bookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "slot id and booking id required")
	}
	ok, err := s.repo.MarkAvailable(ctx, slotID, bookingID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("slot %s is not held by booking %s", slotID, bookingID))
	}
	return nil
}

func (s *service) Block(ctx context.Context, prestataireID, slotID uuid.UUID) error {
	if err := s.authorizeSlot(ctx, prestataireID, slotID); err != nil {
		return err
	}
	ok, err := s.repo.MarkBlocked(ctx, slotID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("slot %s cannot be blocked", slotID))
	}
	return nil
}

func (s *service) Unblock(ctx context.Context, prestataireID, slotID uuid.UUID) error {
	if err := s.authorizeSlot(ctx, prestataireID, slotID); err != nil {
		return err
	}
	ok, err := s.repo.MarkUnblocked(ctx, slotID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("slot %s is not blocked", slotID))
	}
	return nil
}

func (s *service) DeleteSlot(ctx context.Context, prestataireID, slotID uuid.UUID) error {
	if err := s.authorizeSlot(ctx, prestataireID, slotID); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, slotID, prestataireID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("slot %s is not deletable", slotID))
	}
	return nil
}

func (s *service) authorizeSlot(ctx context.Context, prestataireID, slotID uuid.UUID) error {
	if prestataireID == uuid.Nil || slotID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "prestataire id and slot id required")
	}
	slot, err := s.repo.FindByID(ctx, slotID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("slot %s not found", slotID))
		}
		return err
	}
	if slot.PrestataireID != prestataireID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "slot belongs to another prestataire")
	}
	return nil
}

func validateWindow(window SlotWindow) error {
	start, err := time.Parse(timeLayout, window.StartTime)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid start time %q", window.StartTime))
	}
	end, err := time.Parse(timeLayout, window.EndTime)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid end time %q", window.EndTime))
	}
	if !end.After(start) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("end time %s must be after start time %s", window.EndTime, window.StartTime))
	}
	return nil
}
