package availability

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:availability_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.AvailabilitySlot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func mustCreateSlot(t *testing.T, svc Service, prestataireID uuid.UUID, start, end string) models.AvailabilitySlot {
	t.Helper()
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	slots, err := svc.CreateSlots(context.Background(), prestataireID, date, []SlotWindow{{StartTime: start, EndTime: end}})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slots[0]
}

func TestCreateSlotsRejectsDuplicateWindow(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	prestataireID := uuid.New()
	mustCreateSlot(t, svc, prestataireID, "09:00", "10:00")

	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateSlots(context.Background(), prestataireID, date, []SlotWindow{{StartTime: "09:00", EndTime: "11:00"}})
	if err == nil {
		t.Fatal("expected duplicate window to conflict")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSlotsValidatesWindows(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		window SlotWindow
	}{
		{"bad start", SlotWindow{StartTime: "9am", EndTime: "10:00"}},
		{"bad end", SlotWindow{StartTime: "09:00", EndTime: "25:00"}},
		{"inverted", SlotWindow{StartTime: "10:00", EndTime: "09:00"}},
	}
	for _, tc := range cases {
		_, err := svc.CreateSlots(context.Background(), uuid.New(), date, []SlotWindow{tc.window})
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestReserveHasExactlyOneWinner(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	slot := mustCreateSlot(t, svc, uuid.New(), "09:00", "10:00")
	ctx := context.Background()

	first := uuid.New()
	if err := svc.Reserve(ctx, slot.ID, first); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	err := svc.Reserve(ctx, slot.ID, uuid.New())
	if err == nil {
		t.Fatal("second reserve must lose")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeSlotUnavailable {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReserveConcurrentWinnersIsOne(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	slot := mustCreateSlot(t, svc, uuid.New(), "14:00", "15:00")

	const contenders = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Reserve(context.Background(), slot.ID, uuid.New()); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestReleaseRequiresHoldingBooking(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	slot := mustCreateSlot(t, svc, uuid.New(), "09:00", "10:00")
	ctx := context.Background()

	bookingID := uuid.New()
	if err := svc.Reserve(ctx, slot.ID, bookingID); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := svc.Release(ctx, slot.ID, uuid.New()); err == nil {
		t.Fatal("release by another booking must fail")
	}

	if err := svc.Release(ctx, slot.ID, bookingID); err != nil {
		t.Fatalf("release by holder: %v", err)
	}

	var reloaded models.AvailabilitySlot
	if err := db.First(&reloaded, "id = ?", slot.ID).Error; err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if reloaded.Status != enums.SlotStatusAvailable {
		t.Fatalf("slot should be available again, got %s", reloaded.Status)
	}
	if reloaded.BookingID != nil {
		t.Fatal("booking id should be cleared on release")
	}
}

func TestBlockOnlyAvailableSlots(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	prestataireID := uuid.New()
	slot := mustCreateSlot(t, svc, prestataireID, "09:00", "10:00")
	ctx := context.Background()

	if err := svc.Block(ctx, uuid.New(), slot.ID); err == nil {
		t.Fatal("blocking someone else's slot must fail")
	}

	if err := svc.Block(ctx, prestataireID, slot.ID); err != nil {
		t.Fatalf("block: %v", err)
	}

	if err := svc.Reserve(ctx, slot.ID, uuid.New()); err == nil {
		t.Fatal("blocked slot must not be reservable")
	}

	if err := svc.Unblock(ctx, prestataireID, slot.ID); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if err := svc.Reserve(ctx, slot.ID, uuid.New()); err != nil {
		t.Fatalf("reserve after unblock: %v", err)
	}
}

func TestDeleteSlotOnlyWhileAvailable(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	prestataireID := uuid.New()
	slot := mustCreateSlot(t, svc, prestataireID, "09:00", "10:00")
	ctx := context.Background()

	if err := svc.Reserve(ctx, slot.ID, uuid.New()); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.DeleteSlot(ctx, prestataireID, slot.ID); err == nil {
		t.Fatal("booked slot must not be deletable")
	}

	free := mustCreateSlot(t, svc, prestataireID, "11:00", "12:00")
	if err := svc.DeleteSlot(ctx, prestataireID, free.ID); err != nil {
		t.Fatalf("delete available slot: %v", err)
	}
}

func TestListCalendarFiltersByRange(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	prestataireID := uuid.New()
	ctx := context.Background()

	for day := 14; day <= 16; day++ {
		date := time.Date(2026, 9, day, 0, 0, 0, 0, time.UTC)
		if _, err := svc.CreateSlots(ctx, prestataireID, date, []SlotWindow{{StartTime: "09:00", EndTime: "10:00"}}); err != nil {
			t.Fatalf("seed day %d: %v", day, err)
		}
	}

	from := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC)
	slots, err := svc.ListCalendar(ctx, prestataireID, from, to)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots in range, got %d", len(slots))
	}
}
