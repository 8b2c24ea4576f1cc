package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rentwise/rentwise-backend/internal/rollup"
	"github.com/rentwise/rentwise-backend/pkg/logger"
)

type rollupRunner interface {
	Backfill(ctx context.Context, from, to time.Time) ([]rollup.Result, error)
}

type RollupJobParams struct {
	Logger *logger.Logger
	Engine rollupRunner
	// LookbackDays is how many finished days are recomputed alongside today.
	LookbackDays int
}

// NewRollupJob recomputes the daily statistics for today and the preceding
// days. Yesterday is always included so events that land after midnight
// still reach the closed day's rows.
func NewRollupJob(params RollupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("rollup engine required")
	}
	lookback := params.LookbackDays
	if lookback <= 0 {
		lookback = 1
	}
	return &rollupJob{
		logg:     params.Logger,
		engine:   params.Engine,
		lookback: lookback,
		now:      time.Now,
	}, nil
}

type rollupJob struct {
	logg     *logger.Logger
	engine   rollupRunner
	lookback int
	now      func() time.Time
}

func (j *rollupJob) Name() string { return "daily-rollup" }

func (j *rollupJob) Run(ctx context.Context) error {
	today := rollup.Day(j.now())
	from := today.AddDate(0, 0, -j.lookback)

	results, err := j.engine.Backfill(ctx, from, today)
	for _, res := range results {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"rollup_date": res.Date.Format(time.DateOnly),
			"status":      res.Status(),
		})
		j.logg.Info(logCtx, "rollup day processed")
	}
	if err != nil {
		return fmt.Errorf("daily rollup: %w", err)
	}
	return nil
}
