package migrate

import (
	"context"
	"fmt"

	"github.com/lamaai/lama-api/pkg/config"
	"github.com/lamaai/lama-api/pkg/db"
	"github.com/lamaai/lama-api/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot. It only acts in the dev
// environment with LAMA_AUTO_MIGRATE set; other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: unwrapping sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, Dialect(cfg.DB), Embedded(), logg)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "auto_migrate", true)
	if err := runner.Up(ctx); err != nil {
		return err
	}
	version, err := runner.Version(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "schema_version", version), "schema up to date")
	return nil
}
