package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/repairshop-backend/internal/bootstrap"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/registry"
	"github.com/angelmondragon/repairshop-backend/pkg/pubsub"
)

func main() {
	bootstrap.Main("outbox-publisher", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	events, err := registry.NewEventRegistry(rt.Config.PubSub)
	if err != nil {
		return err
	}

	client, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, pubsub.Publisher, rt.Logger)
	if err != nil {
		return err
	}
	rt.OnClose("pubsub", client.Close)

	service, err := NewService(ServiceParams{
		Config:        rt.Config,
		Logger:        rt.Logger,
		DB:            rt.DB,
		PubSub:        client,
		Repository:    outbox.NewRepository(rt.DB.DB()),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(rt.DB.DB()),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	rt.ServeMetrics(ctx)
	rt.Logger.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}
