package commission

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
)

// Service quotes commissions against the prestataire's live mission history.
type Service interface {
	QuoteBooking(ctx context.Context, prestataireID uuid.UUID, method enums.PaymentMethod, grossCents int64) (*Quote, error)
}

type service struct {
	repo Repository
	calc *Calculator
}

// NewService builds a commission service with the required dependencies.
func NewService(repo Repository, calc *Calculator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if calc == nil {
		return nil, fmt.Errorf("commission calculator required")
	}
	return &service{repo: repo, calc: calc}, nil
}

func (s *service) QuoteBooking(ctx context.Context, prestataireID uuid.UUID, method enums.PaymentMethod, grossCents int64) (*Quote, error) {
	if prestataireID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prestataire id required")
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", method))
	}

	// The free window is decided by the stored completion history, never by a
	// counter carried on the account.
	completed, err := s.repo.CountCompletedMissions(ctx, prestataireID)
	if err != nil {
		return nil, err
	}
	return s.calc.QuoteFor(method, grossCents, int(completed))
}
