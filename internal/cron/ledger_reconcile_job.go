package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

const reconcileBatch = 100

type accountLister interface {
	ListAccountIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
}

type ledgerAuditor interface {
	Reconcile(ctx context.Context, accountID uuid.UUID) error
}

// LedgerReconcileJobParams configure the nightly ledger audit.
type LedgerReconcileJobParams struct {
	Logger   *logger.Logger
	Accounts accountLister
	Credits  ledgerAuditor
	Batch    int
}

// NewLedgerReconcileJob builds the cron job that replays every credit ledger
// against its cached balance. Accounts that drift get frozen by the audit, so
// one bad account must not stop the loop.
func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account lister required")
	}
	if params.Credits == nil {
		return nil, fmt.Errorf("credits service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = reconcileBatch
	}
	return &ledgerReconcileJob{
		logg:     params.Logger,
		accounts: params.Accounts,
		credits:  params.Credits,
		batch:    batch,
	}, nil
}

type ledgerReconcileJob struct {
	logg     *logger.Logger
	accounts accountLister
	credits  ledgerAuditor
	batch    int
}

func (j *ledgerReconcileJob) Name() string { return "ledger-reconcile" }

func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	var errs []error
	checked := 0
	flagged := 0
	offset := 0
	for {
		ids, err := j.accounts.ListAccountIDs(ctx, j.batch, offset)
		if err != nil {
			return fmt.Errorf("list credit accounts: %w", err)
		}
		for _, id := range ids {
			checked++
			if err := j.credits.Reconcile(ctx, id); err != nil {
				flagged++
				errs = append(errs, fmt.Errorf("account %s: %w", id, err))
			}
		}
		if len(ids) < j.batch {
			break
		}
		offset += j.batch
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked": checked,
		"flagged": flagged,
	})
	j.logg.Info(logCtx, "ledger reconcile sweep complete")
	return multierr.Combine(errs...)
}
