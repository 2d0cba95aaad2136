package credits

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	"github.com/prestalink/prestalink-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a credits repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrCreateAccount(ctx context.Context, key AccountKey) (*models.CreditAccount, error) {
	account, err := r.FindAccount(ctx, key)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := &models.CreditAccount{
		ID:         uuid.New(),
		UserID:     key.UserID,
		CreditType: key.CreditType,
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repository) FindAccount(ctx context.Context, key AccountKey) (*models.CreditAccount, error) {
	var account models.CreditAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND credit_type = ?", key.UserID, key.CreditType).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.CreditAccount, error) {
	var account models.CreditAccount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.CreditAccount{}).
		Where("id = ? AND frozen = ?", accountID, false).
		Where("balance + ? >= 0", delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetUsedFreeCredit(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.CreditAccount{}).
		Where("id = ?", accountID).
		Update("used_free_credit", true).Error
}

func (r *repository) GrantUnlimited(ctx context.Context, accountID uuid.UUID, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.CreditAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"has_unlimited":        true,
			"unlimited_expires_at": expiresAt,
		}).Error
}

func (r *repository) ClearUnlimited(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.CreditAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"has_unlimited":        false,
			"unlimited_expires_at": nil,
		}).Error
}

func (r *repository) FreezeAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.CreditAccount{}).
		Where("id = ?", accountID).
		Update("frozen", true).Error
}

func (r *repository) InsertTransaction(ctx context.Context, entry *models.CreditTransaction) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindTransactionByIntent(ctx context.Context, paymentIntentID string) (*models.CreditTransaction, error) {
	var entry models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", paymentIntentID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListTransactions(ctx context.Context, accountID uuid.UUID, params pagination.Params) ([]models.CreditTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.CreditTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SumTransactionAmounts(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Where("account_id = ?", accountID).
		Select("SUM(amount)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) ListLapsedUnlimited(ctx context.Context, now time.Time, limit int) ([]models.CreditAccount, error) {
	var rows []models.CreditAccount
	err := r.db.WithContext(ctx).
		Where("has_unlimited = ? AND unlimited_expires_at IS NOT NULL AND unlimited_expires_at < ?", true, now).
		Order("unlimited_expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListAccountIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.CreditAccount{}).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) ListActivePackages(ctx context.Context, creditType enums.CreditType) ([]models.CreditPackage, error) {
	query := r.db.WithContext(ctx).Where("active = ?", true)
	if creditType != "" {
		query = query.Where("credit_type = ?", creditType)
	}
	var rows []models.CreditPackage
	err := query.Order("price_cents ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindPackage(ctx context.Context, id uuid.UUID) (*models.CreditPackage, error) {
	var pkg models.CreditPackage
	if err := r.db.WithContext(ctx).First(&pkg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}
