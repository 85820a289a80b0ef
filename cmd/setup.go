package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/xtrobe/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the config file when missing and migrates the configured database.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	config := r.config

	if config.Store.Backend != "" && config.Store.Backend != "sql" {
		r.logger.Warn("store backend does not use the database", "backend", config.Store.Backend)
	}

	dialect, err := shared.ParseDialect(config.Database.Driver)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "driver", dialect, "path", config.Database.Path)

	db, err := shared.OpenDatabase(dialect, config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("status") {
		statuses, err := shared.Migrations(db)
		if err != nil {
			return err
		}
		for _, m := range statuses {
			mark := " "
			if m.Applied {
				mark = "✓"
			}
			r.writePlain("[%s] %04d %s\n", mark, m.Version, m.Name)
		}
		return nil
	}

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db, dialect); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		r.logger.Infof("rollback complete for database: %v", config.Database.Path)
		return nil
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db, dialect); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}
