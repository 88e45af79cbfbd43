package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var sqlFS embed.FS

// Up applies all pending migrations. Safe to call repeatedly; an up-to-date
// schema is a no-op.
func Up(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("migrations: create mysql driver: %w", err)
	}

	sourceDriver, err := iofs.New(sqlFS, "sql")
	if err != nil {
		return fmt.Errorf("migrations: open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "mysql", driver)
	if err != nil {
		return fmt.Errorf("migrations: init migrate instance: %w", err)
	}

	if v, _, verr := m.Version(); verr == nil {
		logrus.WithField("version", v).Info("Current schema version")
	} else if verr == migrate.ErrNilVersion {
		logrus.Info("Fresh database, no migration version yet")
	}

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			logrus.Info("Schema is up to date")
			return nil
		}
		return fmt.Errorf("migrations: apply: %w", err)
	}

	if v, _, err := m.Version(); err == nil {
		logrus.WithField("version", v).Info("Migrations applied")
	}

	return nil
}
