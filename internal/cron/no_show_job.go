package cron

import (
	"context"
	"fmt"

	"github.com/prestalink/prestalink-backend/pkg/logger"
)

const noShowSweepBatch = 200

type noShowSweeper interface {
	SweepNoShows(ctx context.Context, limit int) (int, error)
}

// NoShowJobParams configure the no-show sweep.
type NoShowJobParams struct {
	Logger   *logger.Logger
	Bookings noShowSweeper
	Batch    int
}

// NewNoShowJob builds the cron job that flags confirmed bookings nobody started.
func NewNoShowJob(params NoShowJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("bookings service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = noShowSweepBatch
	}
	return &noShowJob{
		logg:     params.Logger,
		bookings: params.Bookings,
		batch:    batch,
	}, nil
}

type noShowJob struct {
	logg     *logger.Logger
	bookings noShowSweeper
	batch    int
}

func (j *noShowJob) Name() string { return "no-show-sweep" }

func (j *noShowJob) Run(ctx context.Context) error {
	total := 0
	for {
		marked, err := j.bookings.SweepNoShows(ctx, j.batch)
		if err != nil {
			return fmt.Errorf("no-show sweep: %w", err)
		}
		total += marked
		if marked < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"marked": total})
	j.logg.Info(logCtx, "no-show sweep complete")
	return nil
}
