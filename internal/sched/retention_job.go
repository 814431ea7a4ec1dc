package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// RetentionJobParams configure the historical order purge.
type RetentionJobParams struct {
	Orders    staging.Repository
	Logger    *logger.Logger
	Workflows config.WorkflowsConfig
}

// RetentionJob deletes staged orders that have been historical longer than
// the retention window. Active orders are never touched.
type RetentionJob struct {
	orders   staging.Repository
	logg     *logger.Logger
	interval time.Duration
	window   time.Duration
}

// NewRetentionJob builds the purge job.
func NewRetentionJob(params RetentionJobParams) (*RetentionJob, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("staging repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	windowDays := params.Workflows.RetentionWindowDays
	if windowDays <= 0 {
		windowDays = 60
	}
	return &RetentionJob{
		orders:   params.Orders,
		logg:     params.Logger,
		interval: params.Workflows.RetentionInterval,
		window:   time.Duration(windowDays) * 24 * time.Hour,
	}, nil
}

func (j *RetentionJob) Name() string { return enums.WorkflowRetention }

func (j *RetentionJob) Interval() time.Duration { return j.interval }

func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.window)
	purged, err := j.orders.PurgeHistorical(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		j.logg.Info(j.logg.WithField(ctx, "purged", purged), "historical orders purged")
	}
	return nil
}
