package cron

import (
	"context"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/logger"
)

type fakeAccountLister struct {
	ids []uuid.UUID
}

func (f *fakeAccountLister) ListAccountIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	if offset >= len(f.ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.ids) {
		end = len(f.ids)
	}
	return f.ids[offset:end], nil
}

type fakeAuditor struct {
	checked []uuid.UUID
	drifted map[uuid.UUID]bool
}

func (f *fakeAuditor) Reconcile(ctx context.Context, accountID uuid.UUID) error {
	f.checked = append(f.checked, accountID)
	if f.drifted[accountID] {
		return pkgerrors.New(pkgerrors.CodeIntegrity, "ledger drift detected")
	}
	return nil
}

func TestLedgerReconcileJobChecksEveryAccount(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	auditor := &fakeAuditor{}
	job, err := NewLedgerReconcileJob(LedgerReconcileJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Accounts: &fakeAccountLister{ids: ids},
		Credits:  auditor,
		Batch:    2,
	})
	if err != nil {
		t.Fatalf("NewLedgerReconcileJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(auditor.checked) != len(ids) {
		t.Fatalf("expected %d accounts checked, got %d", len(ids), len(auditor.checked))
	}
}

func TestLedgerReconcileJobContinuesPastDrift(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	auditor := &fakeAuditor{drifted: map[uuid.UUID]bool{bad: true}}
	job, err := NewLedgerReconcileJob(LedgerReconcileJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Accounts: &fakeAccountLister{ids: []uuid.UUID{bad, good}},
		Credits:  auditor,
	})
	if err != nil {
		t.Fatalf("NewLedgerReconcileJob: %v", err)
	}

	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error for drifted account")
	}
	if len(auditor.checked) != 2 {
		t.Fatalf("drift must not stop the sweep, checked %d", len(auditor.checked))
	}
}
