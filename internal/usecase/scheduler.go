package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsPulse/internal/ports"
)

// Scheduler wires the hourly driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring aggregation runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.pipeline.Run(ctx)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("scheduled run failed", "trigger", trigger, "error", err)
			}
			return
		}
		if s.logger != nil {
			s.logger.Info("scheduled run finished",
				"trigger", trigger,
				"new_articles", report.NewArticles,
				"processed", report.Processed,
				"errors", report.Errors)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
