package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/repairshop-backend/internal/bootstrap"
	"github.com/angelmondragon/repairshop-backend/internal/consumers"
	"github.com/angelmondragon/repairshop-backend/internal/consumers/analytics"
	"github.com/angelmondragon/repairshop-backend/internal/notifications"
	"github.com/angelmondragon/repairshop-backend/internal/storeinfo"
	"github.com/angelmondragon/repairshop-backend/pkg/bigquery"
	"github.com/angelmondragon/repairshop-backend/pkg/mail"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/registry"
	"github.com/angelmondragon/repairshop-backend/pkg/pubsub"
)

func main() {
	bootstrap.Main("worker", run)
}

type subscription struct {
	name    string
	id      string
	handler consumers.Handler
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Subscriber, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	rt.OnClose("pubsub", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bigquery: %w", err)
	}
	rt.OnClose("bigquery", bqClient.Close)
	err = bqClient.EnsureTable(ctx, bigquery.TableSpec{
		Name:           cfg.BigQuery.SalesTable,
		Schema:         analytics.SaleLineSchema(),
		PartitionField: analytics.PartitionField,
	})
	if err != nil {
		return fmt.Errorf("bigquery sales table: %w", err)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}
	storeSvc, err := storeinfo.NewService(storeinfo.NewRepository(rt.DB.DB()), cfg.App.ShopName)
	if err != nil {
		return err
	}
	analyticsConsumer, err := analytics.NewConsumer(bqClient, cfg.BigQuery.SalesTable, logg)
	if err != nil {
		return err
	}
	mailConsumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Sender:     mail.New(cfg.Sendgrid, logg),
		Store:      storeSvc,
		ShopName:   cfg.App.ShopName,
		OwnerEmail: cfg.Sendgrid.OwnerEmail,
		Currency:   cfg.Cart.Currency,
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	subs := []subscription{
		{name: analytics.ConsumerName, id: cfg.PubSub.SalesSubscription, handler: analyticsConsumer},
		{name: notifications.ConsumerName + "-sales", id: cfg.PubSub.SalesMailSubscription, handler: mailConsumer},
		{name: notifications.ConsumerName, id: cfg.PubSub.NotificationSubscription, handler: mailConsumer},
	}
	decoders := registry.DefaultDecoders()
	services := make([]*consumers.Service, 0, len(subs))
	for _, sub := range subs {
		subscriber := pubsubClient.Subscription(sub.id)
		if subscriber == nil {
			return fmt.Errorf("%s: subscription %q not configured", sub.name, sub.id)
		}
		svc, err := consumers.NewService(consumers.ServiceParams{
			Name:         sub.name,
			Subscription: subscriber,
			Handler:      sub.handler,
			Idempotency:  manager,
			Decoders:     decoders,
			Logger:       logg,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", sub.name, err)
		}
		services = append(services, svc)
	}

	worker, err := NewService(ServiceParams{
		Logger:    logg,
		Consumers: services,
		Dependencies: map[string]pinger{
			"database": rt.DB.Ping,
			"redis":    redisClient.Ping,
			"pubsub":   pubsubClient.Ping,
			"bigquery": bqClient.Ping,
		},
	})
	if err != nil {
		return err
	}

	rt.ServeMetrics(ctx)
	logg.Info(ctx, "starting worker")
	return worker.Run(ctx)
}
