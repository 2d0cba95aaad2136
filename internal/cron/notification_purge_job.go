package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

const notificationRetention = 30 * 24 * time.Hour

type notificationsPurger interface {
	PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NotificationPurgeJobParams configure the read-notification cleanup.
type NotificationPurgeJobParams struct {
	Logger        *logger.Logger
	Notifications notificationsPurger
	Retention     time.Duration
}

// NewNotificationPurgeJob builds the cron job that drops old read notifications.
func NewNotificationPurgeJob(params NotificationPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = notificationRetention
	}
	return &notificationPurgeJob{
		logg:          params.Logger,
		notifications: params.Notifications,
		retention:     retention,
	}, nil
}

type notificationPurgeJob struct {
	logg          *logger.Logger
	notifications notificationsPurger
	retention     time.Duration
}

func (j *notificationPurgeJob) Name() string { return "notification-purge" }

func (j *notificationPurgeJob) Run(ctx context.Context) error {
	deleted, err := j.notifications.PurgeRead(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("notification purge: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "notification purge complete")
	return nil
}
