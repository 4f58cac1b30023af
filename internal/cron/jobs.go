package cron

import (
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// JobsParams carries what the standard job set needs.
type JobsParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Products      lowStockLister
	Outbox        outboxEmitter
	OutboxRepo    publishedPruner
	DeadLetters   deadLetterPruner
	RetentionDays int
	DLQDays       int
}

// StandardJobs builds the registry run by the cron worker and by shopctl.
func StandardJobs(params JobsParams) (*Registry, error) {
	lowStock, err := NewLowStockJob(LowStockJobParams{
		Logger:   params.Logger,
		DB:       params.DB,
		Products: params.Products,
		Outbox:   params.Outbox,
	})
	if err != nil {
		return nil, err
	}
	retention, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      params.Logger,
		Published:   params.OutboxRepo,
		DeadLetters: params.DeadLetters,
		Days:        params.RetentionDays,
		DLQDays:     params.DLQDays,
	})
	if err != nil {
		return nil, err
	}
	return NewRegistry(lowStock, retention), nil
}
