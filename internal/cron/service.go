// Package cron runs the shop's periodic maintenance: low-stock alerts and
// outbox pruning.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronMetrics
	// Interval between cycles; an hour when zero.
	Interval time.Duration
}

// Service runs the registered jobs every interval. Only the instance holding
// the lock runs a cycle.
type Service struct {
	logg     *logger.Logger
	jobs     *Registry
	lock     Lock
	metrics  *metrics.CronMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	svc := &Service{
		logg:     params.Logger,
		jobs:     params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}
	if svc.jobs == nil {
		svc.jobs = NewRegistry()
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	return svc, nil
}

// Run starts a cycle right away and then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs every job under the lock. Job failures are logged and counted
// but do not fail the cycle; only lock errors are returned.
func (s *Service) RunOnce(ctx context.Context) error {
	_, err := s.cycle(ctx, s.jobs.Jobs())
	return err
}

// RunJob runs one job by name under the lock and returns its error.
func (s *Service) RunJob(ctx context.Context, name string) error {
	job, ok := s.jobs.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown cron job %q", name)
	}
	failed, err := s.cycle(ctx, []Job{job})
	return errors.Join(err, failed)
}

// cycle returns the joined job failures separately from the lock error.
func (s *Service) cycle(ctx context.Context, jobs []Job) (failed, err error) {
	held, err := s.lock.Acquire(ctx)
	switch {
	case err != nil:
		return nil, fmt.Errorf("acquire cron lock: %w", err)
	case !held:
		s.metrics.SkippedCycle()
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil, nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	started := time.Now()
	for _, job := range jobs {
		failed = errors.Join(failed, s.runJob(ctx, job))
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":        len(jobs),
		"failed":      failed != nil,
		"duration_ms": time.Since(started).Milliseconds(),
	}), "cron cycle finished")
	return failed, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	ctx = s.logg.WithField(ctx, "job", name)

	started := time.Now()
	err := job.Run(ctx)
	took := time.Since(started)
	s.metrics.ObserveRun(name, took, err)

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logg.Debug(ctx, "cron job finished")
	return nil
}
