package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sagargautam500/storefront/pkg/config"
	"github.com/sagargautam500/storefront/pkg/db"
	"github.com/sagargautam500/storefront/pkg/logger"
)

// MaybeRunDev brings a dev postgres up to the embedded schema on boot when
// STOREFRONT_AUTO_MIGRATE is set. Other environments migrate through
// cmd/migrate. The SQL is postgres-only, so sqlite is left alone.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if driver := strings.ToLower(strings.TrimSpace(cfg.DB.Driver)); driver != "" && driver != "postgres" {
		logg.Warn(ctx, "migrate.auto_run.skipped")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.auto_run.completed")
	return nil
}
