package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations at startup in dev when
// REPAIRSHOP_AUTO_MIGRATE is on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	runner, err := NewRunner(sqlDB, nil)
	if err != nil {
		return err
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	for _, m := range applied {
		logg.Info(logg.WithFields(ctx, map[string]any{"version": m.Version, "duration_ms": m.Duration.Milliseconds()}), "migration applied")
	}
	return nil
}
