package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

type fakePurger struct {
	lastRetention time.Duration
	err           error
}

func (f *fakePurger) PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.lastRetention = olderThan
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func TestNotificationPurgeJobDefaultsRetention(t *testing.T) {
	purger := &fakePurger{}
	job, err := NewNotificationPurgeJob(NotificationPurgeJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		Notifications: purger,
	})
	if err != nil {
		t.Fatalf("NewNotificationPurgeJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if purger.lastRetention != notificationRetention {
		t.Fatalf("expected default retention %s, got %s", notificationRetention, purger.lastRetention)
	}
}

func TestNotificationPurgeJobPropagatesError(t *testing.T) {
	job, err := NewNotificationPurgeJob(NotificationPurgeJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		Notifications: &fakePurger{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewNotificationPurgeJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
