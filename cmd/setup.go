package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/multitune/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file from the embedded template when none exists, then migrates the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err != nil {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				return err
			}

			config, err := shared.Load(r.configPath)
			if err != nil {
				return err
			}
			r.config = config
			r.writePlain("✓ Config file created at %s\n", r.configPath)
		}
	}

	r.logger.Info("initializing database", "driver", r.config.Database.Driver, "dsn", r.config.Database.DSN)

	a, err := r.open()
	if err != nil {
		return err
	}
	defer a.Close()

	version, err := shared.MigrationVersion(a.db, r.config.Database.Driver)
	if err != nil {
		return err
	}

	r.writePlain("✓ Database ready (schema version %d)\n", version)
	if !r.config.Credentials.Spotify.Configured() || !r.config.Credentials.YouTube.Configured() {
		r.writePlainln("Next steps:")
		r.writePlain("1. Fill in OAuth client credentials in %s\n", r.configPath)
		r.writePlain("2. Run 'multitune link youtube' or 'multitune link spotify'\n")
	}
	return nil
}

// MigrateUp applies pending migrations.
func (r *Runner) MigrateUp(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrationsWithLogger(db, r.config.Database.Driver, r.logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return r.printVersion(db)
}

// MigrateDown rolls back the latest migration.
func (r *Runner) MigrateDown(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(db, r.config.Database.Driver); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return r.printVersion(db)
}

// MigrateStatus prints the applied schema version.
func (r *Runner) MigrateStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return r.printVersion(db)
}

func (r *Runner) printVersion(db *sql.DB) error {
	version, err := shared.MigrationVersion(db, r.config.Database.Driver)
	if err != nil {
		return err
	}
	return r.writePlain("Schema version: %d\n", version)
}
