package promos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prestalink/prestalink-backend/internal/credits"
	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db"
	"github.com/prestalink/prestalink-backend/pkg/db/models"
	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
)

type creditLedger interface {
	Apply(ctx context.Context, input credits.ApplyInput) (*credits.ApplyResult, error)
	Balance(ctx context.Context, key credits.AccountKey) (*credits.BalanceView, error)
}

// Service turns promo codes and referrals into credit grants.
type Service interface {
	Redeem(ctx context.Context, userID uuid.UUID, code string) (*credits.ApplyResult, error)
	CompleteReferral(ctx context.Context, referrerID, referredID uuid.UUID, creditType enums.CreditType) (*credits.ApplyResult, error)
	GrantWelcome(ctx context.Context, userID uuid.UUID, creditType enums.CreditType) (*credits.ApplyResult, error)
}

type service struct {
	repo   Repository
	ledger creditLedger
	cfg    config.CreditsConfig
	now    func() time.Time
}

// NewService builds a promo service with the required dependencies.
func NewService(repo Repository, ledger creditLedger, cfg config.CreditsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promos repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	return &service{repo: repo, ledger: ledger, cfg: cfg, now: time.Now}, nil
}

// Redeem grants a promo code's credits once per user. The redemption row's
// unique key is the lock: a concurrent second attempt fails its insert and
// never reaches the ledger.
func (s *service) Redeem(ctx context.Context, userID uuid.UUID, code string) (*credits.ApplyResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	promo, err := s.repo.FindCodeByValue(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown promo code %q", code))
		}
		return nil, err
	}
	if !promo.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code is no longer active")
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo code has expired")
	}

	redemption := &models.PromoRedemption{
		PromoCodeID:   promo.ID,
		UserID:        userID,
		TransactionID: uuid.Nil,
	}
	if err := s.repo.InsertRedemption(ctx, redemption); err != nil {
		if db.IsUniqueViolation(err, "ux_promo_redemptions_code_user") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promo code already redeemed")
		}
		return nil, err
	}

	result, err := s.ledger.Apply(ctx, credits.ApplyInput{
		Key:         credits.AccountKey{UserID: userID, CreditType: promo.CreditType},
		Action:      enums.CreditActionBonus,
		Amount:      promo.Credits,
		Description: fmt.Sprintf("promo %s", promo.Code),
	})
	if err != nil {
		// The grant never happened; release the redemption so the user can retry.
		_ = s.repo.DeleteRedemption(ctx, redemption.ID)
		return nil, err
	}
	if err := s.repo.SetRedemptionTransaction(ctx, redemption.ID, result.TransactionID); err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteReferral pays the referrer's bonus once the referred user finished
// onboarding.
func (s *service) CompleteReferral(ctx context.Context, referrerID, referredID uuid.UUID, creditType enums.CreditType) (*credits.ApplyResult, error) {
	if referrerID == uuid.Nil || referredID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referrer and referred ids required")
	}
	if referrerID == referredID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "self-referral is not allowed")
	}
	return s.ledger.Apply(ctx, credits.ApplyInput{
		Key:         credits.AccountKey{UserID: referrerID, CreditType: creditType},
		Action:      enums.CreditActionReferral,
		Amount:      s.cfg.ReferralBonusCredits,
		Description: fmt.Sprintf("referral of %s", referredID),
	})
}

// GrantWelcome credits a fresh account its launch credits exactly once.
func (s *service) GrantWelcome(ctx context.Context, userID uuid.UUID, creditType enums.CreditType) (*credits.ApplyResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	view, err := s.ledger.Balance(ctx, credits.AccountKey{UserID: userID, CreditType: creditType})
	if err != nil {
		return nil, err
	}
	if view.UsedFreeCredit {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "welcome credits already granted")
	}
	return s.ledger.Apply(ctx, credits.ApplyInput{
		Key:         credits.AccountKey{UserID: userID, CreditType: creditType},
		Action:      enums.CreditActionBonus,
		Amount:      s.cfg.InitialFreeCredits,
		Description: "welcome credits",
	})
}
