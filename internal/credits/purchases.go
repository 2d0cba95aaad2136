package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
)

// Metadata keys stamped on purchase intents so the webhook can route them.
const (
	purchaseMetaKind       = "kind"
	purchaseMetaKindValue  = "credit_purchase"
	purchaseMetaPackageID  = "package_id"
	purchaseMetaUserID     = "user_id"
	purchaseMetaCreditType = "credit_type"
)

// PurchaseQuote is what the client needs to finish paying for a package.
type PurchaseQuote struct {
	PaymentIntentID string
	ClientSecret    string
	AmountCents     int64
}

type purchaseGateway interface {
	CreateCreditPurchaseIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (intentID, clientSecret string, err error)
}

// PurchaseService sells credit packages. Grants only land on the ledger once
// the gateway reports the intent as succeeded.
type PurchaseService interface {
	ListPackages(ctx context.Context, creditType enums.CreditType) ([]models.CreditPackage, error)
	BeginPurchase(ctx context.Context, key AccountKey, packageID uuid.UUID) (*PurchaseQuote, error)
	Settle(ctx context.Context, paymentIntentID string, metadata map[string]string) error
}

type purchaseService struct {
	repo     Repository
	tx       txRunner
	ledger   Service
	gateway  purchaseGateway
	currency string
}

// NewPurchaseService wires the package purchase flow on top of the ledger.
func NewPurchaseService(repo Repository, tx txRunner, ledger Service, gateway purchaseGateway, currency string) (PurchaseService, error) {
	if repo == nil {
		return nil, fmt.Errorf("credits repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if currency == "" {
		currency = "eur"
	}
	return &purchaseService{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		gateway:  gateway,
		currency: currency,
	}, nil
}

func (s *purchaseService) ListPackages(ctx context.Context, creditType enums.CreditType) ([]models.CreditPackage, error) {
	if creditType != "" && !creditType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid credit type %q", creditType))
	}
	rows, err := s.repo.ListActivePackages(ctx, creditType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credit packages")
	}
	return rows, nil
}

func (s *purchaseService) BeginPurchase(ctx context.Context, key AccountKey, packageID uuid.UUID) (*PurchaseQuote, error) {
	if key.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !key.CreditType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid credit type %q", key.CreditType))
	}
	if packageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}

	pkg, err := s.repo.FindPackage(ctx, packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "credit package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit package")
	}
	if !pkg.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "credit package not found")
	}
	if pkg.CreditType != key.CreditType {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package does not match the requested credit type")
	}

	metadata := map[string]string{
		purchaseMetaKind:       purchaseMetaKindValue,
		purchaseMetaPackageID:  pkg.ID.String(),
		purchaseMetaUserID:     key.UserID.String(),
		purchaseMetaCreditType: string(key.CreditType),
	}
	intentID, clientSecret, err := s.gateway.CreateCreditPurchaseIntent(ctx, pkg.PriceCents, s.currency, metadata)
	if err != nil {
		return nil, err
	}
	return &PurchaseQuote{
		PaymentIntentID: intentID,
		ClientSecret:    clientSecret,
		AmountCents:     pkg.PriceCents,
	}, nil
}

// Settle grants the purchased package once. Replays are detected through the
// intent id recorded on the ledger entry.
func (s *purchaseService) Settle(ctx context.Context, paymentIntentID string, metadata map[string]string) error {
	if paymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	if metadata[purchaseMetaKind] != purchaseMetaKindValue {
		return pkgerrors.New(pkgerrors.CodeNotFound, "intent is not a credit purchase")
	}

	existing, err := s.repo.FindTransactionByIntent(ctx, paymentIntentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase replay")
	}
	if existing != nil {
		return nil
	}

	packageID, err := uuid.Parse(metadata[purchaseMetaPackageID])
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid package id on intent")
	}
	userID, err := uuid.Parse(metadata[purchaseMetaUserID])
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id on intent")
	}
	creditType, err := enums.ParseCreditType(metadata[purchaseMetaCreditType])
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid credit type on intent")
	}
	key := AccountKey{UserID: userID, CreditType: creditType}

	pkg, err := s.repo.FindPackage(ctx, packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "credit package not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit package")
	}

	intentID := paymentIntentID
	if pkg.Credits > 0 {
		if _, err := s.ledger.Apply(ctx, ApplyInput{
			Key:             key,
			Action:          enums.CreditActionPurchase,
			Amount:          pkg.Credits,
			PackageID:       &pkg.ID,
			Description:     fmt.Sprintf("purchase of package %s", pkg.Name),
			PaymentIntentID: &intentID,
		}); err != nil {
			return err
		}
	}
	if pkg.UnlimitedDays > 0 {
		if err := s.ledger.GrantUnlimited(ctx, key, pkg.UnlimitedDays); err != nil {
			return err
		}
	}
	if pkg.Credits == 0 && pkg.UnlimitedDays > 0 {
		// A pass-only package moves no credits, so append a zero-amount entry
		// carrying the intent id to keep the settle replay-safe.
		if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			account, err := repo.GetOrCreateAccount(ctx, key)
			if err != nil {
				return err
			}
			return repo.InsertTransaction(ctx, &models.CreditTransaction{
				AccountID:       account.ID,
				Action:          enums.CreditActionPurchase,
				Amount:          0,
				BalanceAfter:    account.Balance,
				PackageID:       &pkg.ID,
				Description:     fmt.Sprintf("purchase of pass %s", pkg.Name),
				PaymentIntentID: &intentID,
			})
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record pass purchase")
		}
	}
	return nil
}
