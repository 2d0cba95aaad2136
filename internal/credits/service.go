package credits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/outbox"
	"github.com/prestalink/prestalink-backend/pkg/outbox/payloads"
	"github.com/prestalink/prestalink-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the append-only credit ledger and its cached balances.
type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*ApplyResult, error)
	Balance(ctx context.Context, key AccountKey) (*BalanceView, error)
	History(ctx context.Context, key AccountKey, params pagination.Params) ([]models.CreditTransaction, string, error)
	GrantUnlimited(ctx context.Context, key AccountKey, days int) error
	Reconcile(ctx context.Context, accountID uuid.UUID) error
	ExpireLapsedPasses(ctx context.Context, now time.Time, limit int) (int, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	cfg    config.CreditsConfig
}

// ApplyInput captures one credit-affecting event.
type ApplyInput struct {
	Key             AccountKey
	Action          enums.CreditAction
	Amount          int
	PackageID       *uuid.UUID
	TaskID          *uuid.UUID
	OfferID         *uuid.UUID
	Description     string
	PaymentIntentID *string
	Actor           *outbox.ActorRef
}

// ApplyResult reports the ledger entry and the balance it produced.
type ApplyResult struct {
	TransactionID uuid.UUID
	NewBalance    int
	// CoveredByPass is true when an active unlimited pass absorbed a debit.
	CoveredByPass bool
}

// BalanceView is the read-side projection of one account.
type BalanceView struct {
	AccountID          uuid.UUID
	Balance            int
	HasUnlimited       bool
	UnlimitedExpiresAt *time.Time
	UsedFreeCredit     bool
	Frozen             bool
}

// NewService builds a credit ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, cfg config.CreditsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("credits repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		cfg:    cfg,
	}, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	if input.Key.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Key.CreditType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid credit type %q", input.Key.CreditType))
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid credit action %q", input.Action))
	}
	if err := validateAmountSign(input.Action, input.Amount); err != nil {
		return nil, err
	}

	var result *ApplyResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		account, err := repo.GetOrCreateAccount(ctx, input.Key)
		if err != nil {
			return err
		}
		if account.Frozen {
			return pkgerrors.New(pkgerrors.CodeIntegrity, "account is frozen pending reconciliation")
		}

		amount := input.Amount
		coveredByPass := false
		if amount < 0 && account.Balance+amount < 0 {
			if !passActive(account, time.Now()) {
				return pkgerrors.New(pkgerrors.CodeInsufficientCredits,
					fmt.Sprintf("balance %d cannot absorb %d", account.Balance, amount)).
					WithDetails(map[string]any{"balance": account.Balance, "amount": amount})
			}
			// The pass absorbs the debit. A zero-amount entry keeps the
			// audit trail without moving the balance.
			amount = 0
			coveredByPass = true
		}

		if amount != 0 {
			ok, err := repo.AdjustBalance(ctx, account.ID, amount)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientCredits,
					fmt.Sprintf("balance %d cannot absorb %d", account.Balance, amount))
			}
		}

		updated, err := repo.FindAccountByID(ctx, account.ID)
		if err != nil {
			return err
		}

		entry := &models.CreditTransaction{
			AccountID:       account.ID,
			Action:          input.Action,
			Amount:          amount,
			BalanceAfter:    updated.Balance,
			PackageID:       input.PackageID,
			TaskID:          input.TaskID,
			OfferID:         input.OfferID,
			Description:     input.Description,
			PaymentIntentID: input.PaymentIntentID,
		}
		if err := repo.InsertTransaction(ctx, entry); err != nil {
			return err
		}

		if shouldMarkFreeCredit(account, input.Action) {
			if err := repo.SetUsedFreeCredit(ctx, account.ID); err != nil {
				return err
			}
		}

		if amount > 0 {
			event := outbox.DomainEvent{
				EventType:     enums.EventCreditGranted,
				AggregateType: enums.AggregateCreditAccount,
				AggregateID:   account.ID,
				Actor:         input.Actor,
				Version:       1,
				Data: payloads.CreditGrantedEvent{
					AccountID:     account.ID,
					UserID:        input.Key.UserID,
					CreditType:    input.Key.CreditType,
					Action:        input.Action,
					Amount:        amount,
					BalanceAfter:  updated.Balance,
					TransactionID: entry.ID,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		if amount < 0 && updated.Balance <= s.cfg.LowBalanceThreshold && !passActive(updated, time.Now()) {
			event := outbox.DomainEvent{
				EventType:     enums.EventLowBalance,
				AggregateType: enums.AggregateCreditAccount,
				AggregateID:   account.ID,
				Version:       1,
				Data: payloads.LowBalanceEvent{
					AccountID:  account.ID,
					UserID:     input.Key.UserID,
					CreditType: input.Key.CreditType,
					Balance:    updated.Balance,
					Threshold:  s.cfg.LowBalanceThreshold,
				},
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}
		}

		result = &ApplyResult{
			TransactionID: entry.ID,
			NewBalance:    updated.Balance,
			CoveredByPass: coveredByPass,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Balance(ctx context.Context, key AccountKey) (*BalanceView, error) {
	if key.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !key.CreditType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid credit type %q", key.CreditType))
	}

	account, err := s.repo.GetOrCreateAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	return &BalanceView{
		AccountID:          account.ID,
		Balance:            account.Balance,
		HasUnlimited:       passActive(account, time.Now()),
		UnlimitedExpiresAt: account.UnlimitedExpiresAt,
		UsedFreeCredit:     account.UsedFreeCredit,
		Frozen:             account.Frozen,
	}, nil
}

func (s *service) History(ctx context.Context, key AccountKey, params pagination.Params) ([]models.CreditTransaction, string, error) {
	account, err := s.repo.FindAccount(ctx, key)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", nil
		}
		return nil, "", err
	}

	rows, err := s.repo.ListTransactions(ctx, account.ID, params)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (s *service) GrantUnlimited(ctx context.Context, key AccountKey, days int) error {
	if days <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unlimited pass days must be positive")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.GetOrCreateAccount(ctx, key)
		if err != nil {
			return err
		}
		expiry := time.Now().AddDate(0, 0, days)
		if passActive(account, time.Now()) && account.UnlimitedExpiresAt != nil {
			// Stacked purchases extend from the current expiry.
			expiry = account.UnlimitedExpiresAt.AddDate(0, 0, days)
		}
		return repo.GrantUnlimited(ctx, account.ID, expiry)
	})
}

// Reconcile replays the log and compares it against the cached balance.
// A mismatch freezes the account and surfaces an integrity violation; it is
// never silently corrected.
func (s *service) Reconcile(ctx context.Context, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	var account *models.CreditAccount
	var total int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if account, err = repo.FindAccountByID(ctx, accountID); err != nil {
			return err
		}
		total, err = repo.SumTransactionAmounts(ctx, accountID)
		return err
	})
	if err != nil {
		return err
	}
	if int64(account.Balance) == total {
		return nil
	}

	// The freeze runs in its own transaction: returning the integrity error
	// from inside it would roll the freeze back with it.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).FreezeAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeIntegrity,
		fmt.Sprintf("account %s cached balance %d does not match ledger sum %d", accountID, account.Balance, total)).
		WithDetails(map[string]any{
			"account_id": accountID,
			"cached":     account.Balance,
			"ledger_sum": total,
		})
}

// ExpireLapsedPasses clears has_unlimited on accounts whose pass has lapsed.
// It never touches balances.
func (s *service) ExpireLapsedPasses(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	accounts, err := s.repo.ListLapsedUnlimited(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, account := range accounts {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.repo.WithTx(tx).ClearUnlimited(ctx, account.ID)
		})
		if err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}

func validateAmountSign(action enums.CreditAction, amount int) error {
	if amount == 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must not be zero")
	}
	if action.IsDebit() {
		if amount > 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidAmount, fmt.Sprintf("action %s requires a negative amount", action))
		}
		return nil
	}
	if amount < 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, fmt.Sprintf("action %s requires a positive amount", action))
	}
	return nil
}

func passActive(account *models.CreditAccount, now time.Time) bool {
	if account == nil || !account.HasUnlimited {
		return false
	}
	if account.UnlimitedExpiresAt == nil {
		return true
	}
	return account.UnlimitedExpiresAt.After(now)
}

func shouldMarkFreeCredit(account *models.CreditAccount, action enums.CreditAction) bool {
	if account.UsedFreeCredit {
		return false
	}
	return action == enums.CreditActionBonus || action == enums.CreditActionUse
}
