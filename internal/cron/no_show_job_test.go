package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

type fakeSweeper struct {
	batches []int
	calls   int
	err     error
}

func (f *fakeSweeper) SweepNoShows(ctx context.Context, limit int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.calls >= len(f.batches) {
		return 0, nil
	}
	marked := f.batches[f.calls]
	f.calls++
	return marked, nil
}

func TestNoShowJobDrainsFullBatches(t *testing.T) {
	sweeper := &fakeSweeper{batches: []int{3, 3, 1}}
	job, err := NewNoShowJob(NoShowJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Bookings: sweeper,
		Batch:    3,
	})
	if err != nil {
		t.Fatalf("NewNoShowJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 3 {
		t.Fatalf("expected 3 sweep calls, got %d", sweeper.calls)
	}
}

func TestNoShowJobPropagatesError(t *testing.T) {
	job, err := NewNoShowJob(NoShowJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Bookings: &fakeSweeper{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewNoShowJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
