package credits

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
)

type fakePurchaseGateway struct {
	seq      int
	lastMeta map[string]string
	err      error
}

func (g *fakePurchaseGateway) CreateCreditPurchaseIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, string, error) {
	if g.err != nil {
		return "", "", g.err
	}
	g.seq++
	g.lastMeta = metadata
	id := fmt.Sprintf("pi_pkg_%d", g.seq)
	return id, id + "_secret", nil
}

func newPurchaseFixture(t *testing.T) (PurchaseService, *gorm.DB, *fakePurchaseGateway) {
	t.Helper()
	dsn := "file:credit_purchases_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.CreditAccount{}, &models.CreditTransaction{}, &models.CreditPackage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewRepository(db)
	ledger, err := NewService(repo, gormTxRunner{db: db}, &recordingOutbox{}, config.CreditsConfig{
		InitialFreeCredits:   3,
		ReferralBonusCredits: 2,
		LowBalanceThreshold:  1,
	})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	gateway := &fakePurchaseGateway{}
	svc, err := NewPurchaseService(repo, gormTxRunner{db: db}, ledger, gateway, "eur")
	if err != nil {
		t.Fatalf("new purchase service: %v", err)
	}
	return svc, db, gateway
}

func seedPackage(t *testing.T, db *gorm.DB, credits, unlimitedDays int, priceCents int64, active bool) uuid.UUID {
	t.Helper()
	pkg := models.CreditPackage{
		ID:            uuid.New(),
		Name:          fmt.Sprintf("pack-%d", credits),
		CreditType:    enums.CreditTypePrestataire,
		Credits:       credits,
		UnlimitedDays: unlimitedDays,
		PriceCents:    priceCents,
		Active:        active,
	}
	if err := db.Create(&pkg).Error; err != nil {
		t.Fatalf("seed package: %v", err)
	}
	return pkg.ID
}

func TestListPackagesReturnsActiveOnly(t *testing.T) {
	t.Parallel()
	svc, db, _ := newPurchaseFixture(t)
	seedPackage(t, db, 10, 0, 999, true)
	seedPackage(t, db, 50, 0, 3999, true)
	seedPackage(t, db, 100, 0, 6999, false)

	rows, err := svc.ListPackages(context.Background(), enums.CreditTypePrestataire)
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 active packages, got %d", len(rows))
	}
	if rows[0].PriceCents > rows[1].PriceCents {
		t.Fatal("packages must be ordered by price")
	}
}

func TestBeginPurchaseTagsIntentMetadata(t *testing.T) {
	t.Parallel()
	svc, db, gateway := newPurchaseFixture(t)
	packageID := seedPackage(t, db, 10, 0, 999, true)
	userID := uuid.New()

	quote, err := svc.BeginPurchase(context.Background(), AccountKey{UserID: userID, CreditType: enums.CreditTypePrestataire}, packageID)
	if err != nil {
		t.Fatalf("BeginPurchase: %v", err)
	}
	if quote.AmountCents != 999 {
		t.Fatalf("expected amount 999, got %d", quote.AmountCents)
	}
	if quote.PaymentIntentID == "" || quote.ClientSecret == "" {
		t.Fatal("expected intent id and client secret")
	}
	if gateway.lastMeta[purchaseMetaPackageID] != packageID.String() {
		t.Fatalf("metadata missing package id: %v", gateway.lastMeta)
	}
	if gateway.lastMeta[purchaseMetaUserID] != userID.String() {
		t.Fatalf("metadata missing user id: %v", gateway.lastMeta)
	}
}

func TestBeginPurchaseRejectsInactivePackage(t *testing.T) {
	t.Parallel()
	svc, db, _ := newPurchaseFixture(t)
	packageID := seedPackage(t, db, 10, 0, 999, false)

	_, err := svc.BeginPurchase(context.Background(), AccountKey{UserID: uuid.New(), CreditType: enums.CreditTypePrestataire}, packageID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for inactive package, got %v", err)
	}
}

func TestSettleGrantsCreditsOnce(t *testing.T) {
	t.Parallel()
	svc, db, _ := newPurchaseFixture(t)
	packageID := seedPackage(t, db, 10, 0, 999, true)
	userID := uuid.New()
	metadata := map[string]string{
		purchaseMetaKind:       purchaseMetaKindValue,
		purchaseMetaPackageID:  packageID.String(),
		purchaseMetaUserID:     userID.String(),
		purchaseMetaCreditType: string(enums.CreditTypePrestataire),
	}

	for i := 0; i < 3; i++ {
		if err := svc.Settle(context.Background(), "pi_settle_1", metadata); err != nil {
			t.Fatalf("Settle replay %d: %v", i, err)
		}
	}

	var account models.CreditAccount
	if err := db.First(&account, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if account.Balance != 10 {
		t.Fatalf("expected balance 10 after replays, got %d", account.Balance)
	}
	var entries int64
	if err := db.Model(&models.CreditTransaction{}).Where("account_id = ?", account.ID).Count(&entries).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected a single ledger entry, got %d", entries)
	}
}

func TestSettlePassOnlyPackageIsReplaySafe(t *testing.T) {
	t.Parallel()
	svc, db, _ := newPurchaseFixture(t)
	packageID := seedPackage(t, db, 0, 30, 2999, true)
	userID := uuid.New()
	metadata := map[string]string{
		purchaseMetaKind:       purchaseMetaKindValue,
		purchaseMetaPackageID:  packageID.String(),
		purchaseMetaUserID:     userID.String(),
		purchaseMetaCreditType: string(enums.CreditTypePrestataire),
	}

	if err := svc.Settle(context.Background(), "pi_pass_1", metadata); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if err := svc.Settle(context.Background(), "pi_pass_1", metadata); err != nil {
		t.Fatalf("Settle replay: %v", err)
	}

	var account models.CreditAccount
	if err := db.First(&account, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	if !account.HasUnlimited || account.UnlimitedExpiresAt == nil {
		t.Fatal("expected an active unlimited pass")
	}
	if account.Balance != 0 {
		t.Fatalf("pass purchase must not move the balance, got %d", account.Balance)
	}
	var entries int64
	if err := db.Model(&models.CreditTransaction{}).Where("account_id = ?", account.ID).Count(&entries).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected one zero-amount marker entry, got %d", entries)
	}
}

func TestSettleRejectsForeignIntent(t *testing.T) {
	t.Parallel()
	svc, _, _ := newPurchaseFixture(t)
	err := svc.Settle(context.Background(), "pi_other", map[string]string{"kind": "something_else"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for non-purchase intent, got %v", err)
	}
}
