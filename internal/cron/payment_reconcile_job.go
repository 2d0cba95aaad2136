package cron

import (
	"context"
	"fmt"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

const paymentReconcileBatch = 100

type paymentReconciler interface {
	ReconcilePayments(ctx context.Context, limit int) (int, error)
}

// PaymentReconcileJobParams configure the stale-payment reconciliation sweep.
type PaymentReconcileJobParams struct {
	Logger   *logger.Logger
	Bookings paymentReconciler
	Batch    int
}

// NewPaymentReconcileJob builds the cron job that re-polls the gateway for
// bookings stuck in pending_payment and voids the abandoned ones.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("bookings service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = paymentReconcileBatch
	}
	return &paymentReconcileJob{
		logg:     params.Logger,
		bookings: params.Bookings,
		batch:    batch,
	}, nil
}

type paymentReconcileJob struct {
	logg     *logger.Logger
	bookings paymentReconciler
	batch    int
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	resolved, err := j.bookings.ReconcilePayments(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("payment reconcile: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"resolved": resolved})
	j.logg.Info(logCtx, "payment reconcile sweep complete")
	return nil
}
