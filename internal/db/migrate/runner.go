// Package migrate applies the embedded schema migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"

	"github.com/US-EPA-CAMD/easey-auth-api-sub000/internal/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrNoChange is returned when the schema is already at the target version.
var ErrNoChange = migrate.ErrNoChange

// Run migrates the database at dsn "up" or "down" using the SQL files
// embedded in the db package. A repeat run against an up-to-date schema
// reports ErrNoChange.
func Run(dsn string, direction string) error {
	if dsn == "" {
		return errors.New("database DSN is empty")
	}
	if direction != "up" && direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}

	sourceDriver, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if direction == "up" {
		return m.Up()
	}
	return m.Down()
}
