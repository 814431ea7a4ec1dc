package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/metrics"
)

const defaultInterval = 10 * time.Minute

// ServiceParams configure the workflow scheduler.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Switches SwitchStore
	Metrics  *metrics.WorkflowMetrics
}

// Service runs each registered job on its own cadence. Coordination between
// worker instances happens inside the jobs themselves, at the database row
// level, so overlapping cycles across processes are safe.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	switches SwitchStore
	metrics  *metrics.WorkflowMetrics
}

// NewService builds a workflow scheduler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Switches == nil {
		return nil, fmt.Errorf("switch store required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		switches: params.Switches,
		metrics:  params.Metrics,
	}, nil
}

// Run starts one ticker loop per job and blocks until the context is
// canceled. Every job runs once at startup before settling into its cadence.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	for _, job := range s.registry.Jobs() {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) runLoop(ctx context.Context, job Job) {
	interval := job.Interval()
	if interval <= 0 {
		interval = defaultInterval
	}

	s.runCycle(ctx, job)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(s.logg.WithWorkflow(ctx, job.Name()), "workflow loop stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx, job)
		}
	}
}

func (s *Service) runCycle(ctx context.Context, job Job) {
	jobCtx := s.logg.WithWorkflow(ctx, job.Name())

	enabled, err := s.switches.Enabled(jobCtx, job.Name())
	if err != nil {
		s.logg.Error(jobCtx, "workflow switch check failed", err)
		s.recordFailure(job.Name())
		return
	}
	if !enabled {
		s.logg.Info(jobCtx, "workflow disabled; skipping cycle")
		s.recordSkipped(job.Name())
		return
	}

	s.logg.Info(jobCtx, "workflow cycle starting")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "workflow cycle failed", err)
		s.recordFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "workflow cycle completed")
	s.recordSuccess(job.Name())
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}

func (s *Service) recordSkipped(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSkipped(job)
}
