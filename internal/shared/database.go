package shared

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// sqlDriverName maps a configured driver to the name registered with database/sql.
func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverSQLite, "":
		return "sqlite3", nil
	case DriverPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, driver)
	}
}

// NewDatabase opens and pings a database for the given driver ("sqlite3" or "postgres").
//
// For SQLite the dsn is a file path or ":memory:". Foreign keys are enabled, and in-memory databases are pinned
// to a single connection so every query sees the same data.
func NewDatabase(driver, dsn string) (*sql.DB, error) {
	name, err := sqlDriverName(driver)
	if err != nil {
		return nil, err
	}

	if name == "sqlite3" {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if name == "sqlite3" && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewDatabaseFromConfig opens the configured database and applies its pool settings.
func NewDatabaseFromConfig(c DatabaseConfig) (*sql.DB, error) {
	db, err := NewDatabase(c.Driver, c.DSN)
	if err != nil {
		return nil, err
	}
	if c.Driver != DriverSQLite || !strings.Contains(c.DSN, ":memory:") {
		ConfigureDatabase(db, c.MaxOpenConns, c.MaxIdleConns)
	}
	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	if dsn == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}
