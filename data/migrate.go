package data

import (
	"database/sql"
	"embed"

	"planlux/hale-sync/config"
	"planlux/hale-sync/log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

const (
	migrationsTable = "hale_sync_schema_migrations"
)

var (
	//go:embed migrations/sqlite/*.sql
	sqliteFiles embed.FS
	//go:embed migrations/mysql/*.sql
	mysqlFiles embed.FS
	//go:embed migrations/postgres/*.sql
	postgresFiles embed.FS
)

func MigrateDatabase(db *sql.DB, cfg *config.Config) error {
	log.Logger.Info("checking database migrations")

	driver, err := createMigrateDatabaseDriver(db, cfg.DBDriver)
	if err != nil {
		return errors.Wrap(err, "unable to create migration instance from database")
	}

	d, err := createMigrateSourceDriver(cfg.DBDriver)
	if err != nil {
		return errors.Wrap(err, "unable to load migration files from embedded filesystem")
	}

	m, err := migrate.NewWithInstance("iofs", d, cfg.GetDatabaseName(), driver)
	if err != nil {
		return errors.Wrap(err, "failed to load migration files from source driver")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "failed to migrate database")
	}

	log.Logger.Info("database is up-to-date, all migrations applied")

	return nil
}

func createMigrateDatabaseDriver(db *sql.DB, driver config.DbDriver) (database.Driver, error) {
	switch driver {
	case config.SQLite:
		return sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: migrationsTable})
	case config.MySQL:
		return mysql.WithInstance(db, &mysql.Config{MigrationsTable: migrationsTable})
	case config.Postgres:
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	}

	return nil, errors.Errorf("no migration driver for %s", driver)
}

func createMigrateSourceDriver(driver config.DbDriver) (source.Driver, error) {
	switch driver {
	case config.SQLite:
		return iofs.New(sqliteFiles, "migrations/sqlite")
	case config.MySQL:
		return iofs.New(mysqlFiles, "migrations/mysql")
	case config.Postgres:
		return iofs.New(postgresFiles, "migrations/postgres")
	}

	return nil, errors.Errorf("no migration files for %s", driver)
}
