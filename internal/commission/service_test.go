package commission

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:commission_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InstantBooking{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedBooking(t *testing.T, db *gorm.DB, prestataireID uuid.UUID, status enums.BookingStatus) {
	t.Helper()
	booking := models.InstantBooking{
		ID:              uuid.New(),
		ClientID:        uuid.New(),
		PrestataireID:   prestataireID,
		ServiceID:       uuid.New(),
		SlotID:          uuid.New(),
		BookingTime:     "10:00",
		DurationMinutes: 60,
		PaymentMethod:   enums.PaymentMethodOnline,
		PriceCents:      5000,
		TotalPriceCents: 5000,
		Status:          status,
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

func TestQuoteBookingCountsOnlyCompletedMissions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	calc := newTestCalculator(t)
	svc, err := NewService(NewRepository(db), calc)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx := context.Background()
	prestataireID := uuid.New()

	// Two completed missions plus noise that must not count.
	seedBooking(t, db, prestataireID, enums.BookingStatusCompleted)
	seedBooking(t, db, prestataireID, enums.BookingStatusCompleted)
	seedBooking(t, db, prestataireID, enums.BookingStatusCancelledByClient)
	seedBooking(t, db, prestataireID, enums.BookingStatusConfirmed)
	seedBooking(t, db, uuid.New(), enums.BookingStatusCompleted)

	quote, err := svc.QuoteBooking(ctx, prestataireID, enums.PaymentMethodOnline, 10000)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !quote.FreeMission {
		t.Fatal("two completed missions should still be inside the free window")
	}

	seedBooking(t, db, prestataireID, enums.BookingStatusCompleted)

	quote, err = svc.QuoteBooking(ctx, prestataireID, enums.PaymentMethodOnline, 10000)
	if err != nil {
		t.Fatalf("quote after third completion: %v", err)
	}
	if quote.FreeMission {
		t.Fatal("third completed mission exhausts the free window")
	}
	if quote.PlatformFeeCents != 1000 {
		t.Fatalf("fee should be 1000, got %d", quote.PlatformFeeCents)
	}
}

func TestQuoteBookingValidatesInput(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), newTestCalculator(t))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx := context.Background()
	if _, err := svc.QuoteBooking(ctx, uuid.Nil, enums.PaymentMethodOnline, 100); err == nil {
		t.Fatal("expected error for nil prestataire id")
	}
	if _, err := svc.QuoteBooking(ctx, uuid.New(), enums.PaymentMethod("check"), 100); err == nil {
		t.Fatal("expected error for unknown payment method")
	}
}
