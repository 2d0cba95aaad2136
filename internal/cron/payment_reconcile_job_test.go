package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

type fakePaymentReconciler struct {
	resolved int
	limit    int
	err      error
}

func (f *fakePaymentReconciler) ReconcilePayments(ctx context.Context, limit int) (int, error) {
	f.limit = limit
	if f.err != nil {
		return 0, f.err
	}
	return f.resolved, nil
}

func TestPaymentReconcileJobRunsSweep(t *testing.T) {
	reconciler := &fakePaymentReconciler{resolved: 2}
	job, err := NewPaymentReconcileJob(PaymentReconcileJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Bookings: reconciler,
		Batch:    25,
	})
	if err != nil {
		t.Fatalf("NewPaymentReconcileJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reconciler.limit != 25 {
		t.Fatalf("expected batch 25, got %d", reconciler.limit)
	}
}

func TestPaymentReconcileJobPropagatesError(t *testing.T) {
	job, err := NewPaymentReconcileJob(PaymentReconcileJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Bookings: &fakePaymentReconciler{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewPaymentReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
