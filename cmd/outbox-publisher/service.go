package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// ServiceParams wires the publisher loop. PublisherFactory defaults to the
// pubsub client's topic publishers and Metrics may be nil.
type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

// Service drains outbox rows written by checkout, device updates and stock
// alerts and forwards them to their Pub/Sub topics.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	pubsub       pubSubClient
	repo         outboxRepository
	dlq          dlqRepository
	registry     registryResolver
	publisherFor publisherFactory
	metrics      *metrics.OutboxMetrics

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		missing bool
		name    string
	}{
		{params.Config == nil, "config"},
		{params.Logger == nil, "logger"},
		{params.DB == nil, "database client"},
		{params.PubSub == nil, "pubsub client"},
		{params.Repository == nil, "outbox repository"},
		{params.Registry == nil, "event registry"},
		{params.DLQRepository == nil, "dlq repository"},
	}
	for _, r := range required {
		if r.missing {
			return nil, fmt.Errorf("%s is required", r.name)
		}
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			p := params.PubSub.Publisher(topic)
			if p == nil {
				return nil
			}
			return gcpPublisher{p}
		}
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		dlq:          params.DLQRepository,
		registry:     params.Registry,
		publisherFor: factory,
		metrics:      params.Metrics,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is canceled. A non-empty batch loops straight away, an
// empty one waits a poll interval and a failed one backs off exponentially.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "pubsub": s.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", name, err)
		}
	}

	wait := s.pollInterval
	for {
		found, err := s.processBatch(ctx)
		switch {
		case ctx.Err() != nil:
			s.logg.Info(ctx, "outbox publisher stopping")
			return ctx.Err()
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = nextBackoff(wait, s.pollInterval, maxBackoff)
		case found:
			wait = s.pollInterval
			continue
		default:
			wait = s.pollInterval
		}
		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// processBatch claims up to batchSize rows and settles each inside the claim
// transaction. It reports whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var claimed int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(events)
		if claimed == 0 {
			return nil
		}

		oldest := events[0].CreatedAt
		tally := map[string]int{}
		for _, event := range events {
			if event.CreatedAt.Before(oldest) {
				oldest = event.CreatedAt
			}
			res := s.attempt(ctx, event)
			if err := s.record(ctx, tx, event, res); err != nil {
				return err
			}
			s.metrics.Settled(string(event.EventType), res.outcome)
			tally[res.outcome]++
		}
		s.metrics.ObserveBatch(claimed, time.Since(oldest))
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"claimed":                  claimed,
			metrics.OutboxPublished:    tally[metrics.OutboxPublished],
			metrics.OutboxRetry:        tally[metrics.OutboxRetry],
			metrics.OutboxDeadLettered: tally[metrics.OutboxDeadLettered],
		}), "outbox batch settled")
		return nil
	})
	return claimed > 0, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

var errNilResult = errors.New("publisher returned no result")

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if res := g.p.Publish(ctx, msg); res != nil {
		return res
	}
	return nil
}
