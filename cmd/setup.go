package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/cliqspot/internal/shared"
	"github.com/desertthunder/cliqspot/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded config template to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)

	r.writePlain("%s\n", ui.Success("✓ Wrote "+path))
	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in [credentials.spotify] or export SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and SPOTIFY_REDIRECT_URI\n")
	r.writePlain("2. Set server.base_url to the public URL the Cliq bot will call\n")
	r.writePlain("%s\n", ui.Help("3. Run 'cliqspot serve' and open <base_url>/login to enroll an account"))
	return nil
}

// SetupDatabase initializes the sqlite database and runs migrations, or rolls back the latest one.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, using defaults", "path", configPath)
		config = shared.DefaultConfig()
	}
	shared.SetLogLevel(r.logger, cmd.String("log-level"))

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("%s\n", ui.Warning("Rolled back latest migration on "+config.Database.Path))
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	if config.Storage.Backend != "sqlite" {
		r.writePlain("%s\n", ui.Help("Set storage.backend = \"sqlite\" in "+configPath+" to use this database."))
	}
	return nil
}
