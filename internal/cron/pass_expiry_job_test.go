package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

type fakePassExpirer struct {
	batches []int
	calls   int
	lastNow time.Time
	err     error
}

func (f *fakePassExpirer) ExpireLapsedPasses(ctx context.Context, now time.Time, limit int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.lastNow = now
	if f.calls >= len(f.batches) {
		return 0, nil
	}
	expired := f.batches[f.calls]
	f.calls++
	return expired, nil
}

func TestPassExpiryJobUsesInjectedClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	expirer := &fakePassExpirer{batches: []int{2}}
	jobIface, err := NewPassExpiryJob(PassExpiryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Credits: expirer,
		Batch:   10,
	})
	if err != nil {
		t.Fatalf("NewPassExpiryJob: %v", err)
	}
	job := jobIface.(*passExpiryJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !expirer.lastNow.Equal(now) {
		t.Fatalf("expected sweep at %s, got %s", now, expirer.lastNow)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected a single sweep, got %d", expirer.calls)
	}
}

func TestPassExpiryJobPropagatesError(t *testing.T) {
	job, err := NewPassExpiryJob(PassExpiryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Credits: &fakePassExpirer{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewPassExpiryJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
