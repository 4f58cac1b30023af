package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// runtime opens shared resources lazily; printer commands never dial
// Postgres.
type runtime struct {
	logLevel string

	cfg  *config.Config
	logg *logger.Logger
	db   *db.Client
}

func (rt *runtime) config() (*config.Config, *logger.Logger, error) {
	if rt.cfg != nil {
		return rt.cfg, rt.logg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := rt.logLevel
	if level == "" {
		level = cfg.App.LogLevel
	}
	rt.cfg = cfg
	rt.logg = logger.New(logger.Options{ServiceName: "shopctl", Level: logger.ParseLevel(level)})
	return rt.cfg, rt.logg, nil
}

func (rt *runtime) database(ctx context.Context) (*db.Client, error) {
	if rt.db != nil {
		return rt.db, nil
	}
	cfg, logg, err := rt.config()
	if err != nil {
		return nil, err
	}
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt.db = client
	return client, nil
}

func (rt *runtime) Close() error {
	if rt.db == nil {
		return nil
	}
	return rt.db.Close()
}

func newRootCommand() *cobra.Command {
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:           "shopctl",
		Short:         "Repair shop back office tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.Close()
		},
	}
	cmd.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "override REPAIRSHOP_LOG_LEVEL")

	cmd.AddCommand(newStaffCommand(rt))
	cmd.AddCommand(newInvoiceCommand(rt))
	cmd.AddCommand(newPrinterCommand(rt))
	cmd.AddCommand(newCronCommand(rt))
	cmd.AddCommand(newOutboxCommand(rt))
	return cmd
}
