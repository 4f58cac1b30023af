package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

const (
	defaultPublishedDays  = 30
	defaultDeadLetterDays = 90
	day                   = 24 * time.Hour
)

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type deadLetterPruner interface {
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger    *logger.Logger
	Published publishedPruner
	// DeadLetters is optional; without it the DLQ is left to shopctl.
	DeadLetters deadLetterPruner
	Days        int
	DLQDays     int
}

// NewOutboxRetentionJob prunes published outbox rows after Days and dead
// letters after DLQDays. Unpublished rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Published == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		published:   params.Published,
		deadLetters: params.DeadLetters,
		keep:        orDefault(params.Days, defaultPublishedDays) * day,
		keepDLQ:     orDefault(params.DLQDays, defaultDeadLetterDays) * day,
		now:         time.Now,
	}, nil
}

func orDefault(days, fallback int) time.Duration {
	if days <= 0 {
		days = fallback
	}
	return time.Duration(days)
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	published   publishedPruner
	deadLetters deadLetterPruner
	keep        time.Duration
	keepDLQ     time.Duration
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	fields := map[string]any{}

	published, err := j.published.DeletePublishedBefore(ctx, now.Add(-j.keep))
	if err != nil {
		return fmt.Errorf("prune published events: %w", err)
	}
	fields["published_deleted"] = published

	if j.deadLetters != nil {
		dead, err := j.deadLetters.DeleteFailedBefore(ctx, now.Add(-j.keepDLQ))
		if err != nil {
			return fmt.Errorf("prune dead letters: %w", err)
		}
		fields["dead_letters_deleted"] = dead
	}

	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention cleanup complete")
	return nil
}
