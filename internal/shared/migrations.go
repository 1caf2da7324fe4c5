package shared

import (
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pressly/goose/v3"
)

//go:embed sql/sqlite3/*.sql sql/postgres/*.sql
var migrationFiles embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// migrationDir returns the embedded directory and goose dialect for driver.
func migrationDir(driver string) (dir, dialect string, err error) {
	switch driver {
	case DriverSQLite, "":
		return path.Join("sql", DriverSQLite), "sqlite3", nil
	case DriverPostgres:
		return path.Join("sql", DriverPostgres), "postgres", nil
	default:
		return "", "", fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, driver)
	}
}

func withGoose(driver string, logger *log.Logger, fn func(dir string) error) error {
	dir, dialect, err := migrationDir(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	if logger != nil {
		goose.SetLogger(logger)
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	return fn(dir)
}

// RunMigrations applies all pending migrations for the given driver.
//
// Applied versions are tracked by goose in the goose_db_version table, so calling it twice is a no-op.
func RunMigrations(db *sql.DB, driver string) error {
	return RunMigrationsWithLogger(db, driver, nil)
}

// RunMigrationsWithLogger is [RunMigrations] with migration progress written to logger.
func RunMigrationsWithLogger(db *sql.DB, driver string, logger *log.Logger) error {
	return withGoose(driver, logger, func(dir string) error {
		if err := goose.Up(db, dir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

// RollbackMigration rolls back the most recent migration.
func RollbackMigration(db *sql.DB, driver string) error {
	return withGoose(driver, nil, func(dir string) error {
		if err := goose.Down(db, dir); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		return nil
	})
}

// MigrationVersion returns the currently applied schema version.
func MigrationVersion(db *sql.DB, driver string) (int64, error) {
	var version int64
	err := withGoose(driver, nil, func(string) error {
		v, err := goose.GetDBVersion(db)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}
