package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/repairshop-backend/internal/bootstrap"
	"github.com/angelmondragon/repairshop-backend/internal/cron"
	"github.com/angelmondragon/repairshop-backend/internal/stock"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
)

func main() {
	bootstrap.Main("cron-worker", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}

	env := rt.Config.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+env), 0)
	if err != nil {
		return err
	}

	outboxRepo := outbox.NewRepository(rt.DB.DB())
	jobs, err := cron.StandardJobs(cron.JobsParams{
		Logger:        rt.Logger,
		DB:            rt.DB,
		Products:      stock.NewRepository(rt.DB.DB()),
		Outbox:        outbox.NewService(outboxRepo, rt.Logger),
		OutboxRepo:    outboxRepo,
		DeadLetters:   outbox.NewDLQRepository(rt.DB.DB()),
		RetentionDays: rt.Config.Outbox.RetentionDays,
		DLQDays:       rt.Config.Outbox.DLQRetentionDays,
	})
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronMetrics(prometheus.DefaultRegisterer),
		Interval: rt.Config.Cron.Interval,
	})
	if err != nil {
		return err
	}

	rt.ServeMetrics(ctx)
	ctx = rt.Logger.WithField(ctx, "interval", rt.Config.Cron.Interval.String())
	rt.Logger.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}
