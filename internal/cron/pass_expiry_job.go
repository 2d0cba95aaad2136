package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

const passExpiryBatch = 500

type passExpirer interface {
	ExpireLapsedPasses(ctx context.Context, now time.Time, limit int) (int, error)
}

// PassExpiryJobParams configure the unlimited pass expiry sweep.
type PassExpiryJobParams struct {
	Logger  *logger.Logger
	Credits passExpirer
	Batch   int
}

// NewPassExpiryJob builds the cron job that turns off lapsed unlimited passes.
func NewPassExpiryJob(params PassExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Credits == nil {
		return nil, fmt.Errorf("credits service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = passExpiryBatch
	}
	return &passExpiryJob{
		logg:    params.Logger,
		credits: params.Credits,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type passExpiryJob struct {
	logg    *logger.Logger
	credits passExpirer
	batch   int
	now     func() time.Time
}

func (j *passExpiryJob) Name() string { return "pass-expiry" }

func (j *passExpiryJob) Run(ctx context.Context) error {
	total := 0
	for {
		expired, err := j.credits.ExpireLapsedPasses(ctx, j.now().UTC(), j.batch)
		if err != nil {
			return fmt.Errorf("pass expiry: %w", err)
		}
		total += expired
		if expired < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"expired": total})
	j.logg.Info(logCtx, "pass expiry sweep complete")
	return nil
}
