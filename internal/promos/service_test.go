package promos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/internal/credits"
	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type noopOutbox struct{}

func (noopOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return nil
}

func (noopOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:promos_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.PromoCode{},
		&models.PromoRedemption{},
		&models.CreditAccount{},
		&models.CreditTransaction{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, credits.Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := config.CreditsConfig{
		InitialFreeCredits:   3,
		ReferralBonusCredits: 2,
		LowBalanceThreshold:  1,
	}
	ledger, err := credits.NewService(credits.NewRepository(db), gormTxRunner{db: db}, noopOutbox{}, cfg)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	svc, err := NewService(NewRepository(db), ledger, cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, ledger, db
}

func seedPromo(t *testing.T, db *gorm.DB, code string, creditsCount int, active bool, expiresAt *time.Time) models.PromoCode {
	t.Helper()
	promo := models.PromoCode{
		ID:         uuid.New(),
		Code:       code,
		CreditType: enums.CreditTypeClient,
		Credits:    creditsCount,
		Active:     active,
		ExpiresAt:  expiresAt,
	}
	if err := db.Create(&promo).Error; err != nil {
		t.Fatalf("seed promo: %v", err)
	}
	return promo
}

func TestRedeemGrantsCreditsOnce(t *testing.T) {
	t.Parallel()

	svc, ledger, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	promo := seedPromo(t, db, "BIENVENUE5", 5, true, nil)

	result, err := svc.Redeem(ctx, userID, "bienvenue5")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.NewBalance != 5 {
		t.Fatalf("expected balance 5, got %d", result.NewBalance)
	}

	var redemption models.PromoRedemption
	if err := db.First(&redemption, "promo_code_id = ? AND user_id = ?", promo.ID, userID).Error; err != nil {
		t.Fatalf("load redemption: %v", err)
	}
	if redemption.TransactionID != result.TransactionID {
		t.Fatal("redemption should link the ledger entry")
	}

	// A second redemption is rejected and grants nothing.
	_, err = svc.Redeem(ctx, userID, "BIENVENUE5")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	view, err := ledger.Balance(ctx, credits.AccountKey{UserID: userID, CreditType: enums.CreditTypeClient})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if view.Balance != 5 {
		t.Fatalf("double redemption must not grant again, got %d", view.Balance)
	}
}

func TestRedeemRejectsUnknownInactiveAndExpired(t *testing.T) {
	t.Parallel()

	svc, _, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	seedPromo(t, db, "DORMANT", 5, false, nil)
	past := time.Now().Add(-time.Hour)
	seedPromo(t, db, "PERIME", 5, true, &past)

	if _, err := svc.Redeem(ctx, userID, "INCONNU"); err == nil {
		t.Fatal("unknown code must fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Redeem(ctx, userID, "DORMANT"); err == nil {
		t.Fatal("inactive code must fail")
	}
	if _, err := svc.Redeem(ctx, userID, "PERIME"); err == nil {
		t.Fatal("expired code must fail")
	}
}

func TestCompleteReferral(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	referrerID := uuid.New()

	result, err := svc.CompleteReferral(ctx, referrerID, uuid.New(), enums.CreditTypeClient)
	if err != nil {
		t.Fatalf("complete referral: %v", err)
	}
	if result.NewBalance != 2 {
		t.Fatalf("expected referral bonus 2, got %d", result.NewBalance)
	}

	if _, err := svc.CompleteReferral(ctx, referrerID, referrerID, enums.CreditTypeClient); err == nil {
		t.Fatal("self-referral must fail")
	}
}

func TestGrantWelcomeOnlyOnce(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	result, err := svc.GrantWelcome(ctx, userID, enums.CreditTypeClient)
	if err != nil {
		t.Fatalf("grant welcome: %v", err)
	}
	if result.NewBalance != 3 {
		t.Fatalf("expected 3 welcome credits, got %d", result.NewBalance)
	}

	_, err = svc.GrantWelcome(ctx, userID, enums.CreditTypeClient)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on second grant, got %v", err)
	}
}
