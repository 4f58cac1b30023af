package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/repairshop-backend/internal/consumers"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

type pinger func(context.Context) error

type runner interface {
	Name() string
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	Consumers []*consumers.Service
	// Dependencies are pinged before any subscription starts receiving.
	Dependencies map[string]pinger
}

// Service runs every consumer until one fails or ctx is canceled.
type Service struct {
	logg      *logger.Logger
	consumers []runner
	deps      map[string]pinger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	runners := make([]runner, 0, len(params.Consumers))
	for _, c := range params.Consumers {
		if c == nil {
			return nil, errors.New("consumer is nil")
		}
		runners = append(runners, c)
	}
	return &Service{logg: params.Logger, consumers: runners, deps: params.Dependencies}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for name, ping := range s.deps {
		if ping == nil {
			continue
		}
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, c := range s.consumers {
		c := c
		group.Go(func() error {
			runCtx := s.logg.WithField(groupCtx, "consumer", c.Name())
			s.logg.Info(runCtx, "consumer started")
			if err := c.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(runCtx, "consumer stopped unexpectedly", err)
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
