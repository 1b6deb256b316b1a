package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations for the configured
// driver ("postgres" or "mysql").
func Migrate(db *sql.DB, driver string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	var dbDriver database.Driver
	switch driver {
	case "postgres":
		dbDriver, err = migratepg.WithInstance(db, &migratepg.Config{})
	case "mysql":
		dbDriver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
