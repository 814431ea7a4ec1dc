package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// JobParams configure the scheduled reporting job.
type JobParams struct {
	Engine    *Engine
	Logger    *logger.Logger
	Workflows config.WorkflowsConfig
}

// Job runs the weekly and monthly aggregations on a daily cadence. Both
// passes overwrite their period, so running every day is harmless.
type Job struct {
	engine   *Engine
	logg     *logger.Logger
	interval time.Duration
}

// NewJob builds the reporting job.
func NewJob(params JobParams) (*Job, error) {
	if params.Engine == nil {
		return nil, fmt.Errorf("reporting engine required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Job{
		engine:   params.Engine,
		logg:     params.Logger,
		interval: params.Workflows.ReportingInterval,
	}, nil
}

func (j *Job) Name() string { return enums.WorkflowReporting }

func (j *Job) Interval() time.Duration { return j.interval }

func (j *Job) Run(ctx context.Context) error {
	now := time.Now().UTC()
	if err := j.engine.RunWeekly(ctx, now); err != nil {
		return fmt.Errorf("weekly aggregation: %w", err)
	}
	if err := j.engine.RunMonthly(ctx, now); err != nil {
		return fmt.Errorf("monthly aggregation: %w", err)
	}
	return nil
}
