package credits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	"github.com/prestalink/prestalink-backend/pkg/pagination"
)

// AccountKey identifies one credit account.
type AccountKey struct {
	UserID     uuid.UUID
	CreditType enums.CreditType
}

// Repository abstracts ledger persistence so the service can run inside any transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetOrCreateAccount(ctx context.Context, key AccountKey) (*models.CreditAccount, error)
	FindAccount(ctx context.Context, key AccountKey) (*models.CreditAccount, error)
	FindAccountByID(ctx context.Context, id uuid.UUID) (*models.CreditAccount, error)

	// AdjustBalance applies the signed delta only when the account is not
	// frozen and the resulting balance stays non-negative. Returns false when
	// no row qualified.
	AdjustBalance(ctx context.Context, accountID uuid.UUID, delta int) (bool, error)

	SetUsedFreeCredit(ctx context.Context, accountID uuid.UUID) error
	GrantUnlimited(ctx context.Context, accountID uuid.UUID, expiresAt time.Time) error
	ClearUnlimited(ctx context.Context, accountID uuid.UUID) error
	FreezeAccount(ctx context.Context, accountID uuid.UUID) error

	InsertTransaction(ctx context.Context, entry *models.CreditTransaction) error
	FindTransactionByIntent(ctx context.Context, paymentIntentID string) (*models.CreditTransaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, params pagination.Params) ([]models.CreditTransaction, error)
	SumTransactionAmounts(ctx context.Context, accountID uuid.UUID) (int64, error)

	ListLapsedUnlimited(ctx context.Context, now time.Time, limit int) ([]models.CreditAccount, error)
	ListAccountIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)

	ListActivePackages(ctx context.Context, creditType enums.CreditType) ([]models.CreditPackage, error)
	FindPackage(ctx context.Context, id uuid.UUID) (*models.CreditPackage, error)
}
