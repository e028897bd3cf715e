package data

import (
	"database/sql"
	"time"

	"planlux/hale-sync/config"
	"planlux/hale-sync/log"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "modernc.org/sqlite"
)

const (
	connectionAttempts    = 30
	maxOpenConnections    = 10
	maxIdleConnections    = 5
	maxConnectionLifetime = time.Minute * 1
)

func init() {
	setupLoggers()
}

func setupLoggers() {
	err := mysql.SetLogger(log.Logger)
	if err != nil {
		log.Logger.WithError(err).Fatalf("unable to set up JSON logger for MySQL driver")
	}
}

// NewDB opens the configured local store and applies migrations on it,
// unless migrations are disabled in config.
func NewDB(cfg *config.Config) (*sql.DB, func()) {
	log.Logger.WithField("driver", cfg.DBDriver).Debug("connecting to the database")

	db, err := Open(cfg)
	if err != nil {
		log.Logger.Fatalf("unable to connect to the database: %s", err)
	}

	connectToDatabase(db, cfg)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Logger.WithError(err).Error("error closing database during shutdown process")
		}
	}

	return db, cleanup
}

// Open returns a pool sized for the configured driver. The embedded store is
// single-writer, so it gets exactly one connection and writes never contend
// on the file lock.
func Open(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.DBDriver.SqlDriverName(), cfg.GetDSN())
	if err != nil {
		return nil, err
	}

	if cfg.DBDriver.SQLite() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	}

	db.SetMaxOpenConns(maxOpenConnections)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxLifetime(maxConnectionLifetime)

	return db, nil
}

func connectToDatabase(db *sql.DB, cfg *config.Config) {
	tries := connectionAttempts
	for {
		err := db.Ping()
		if err == nil {
			break
		}

		time.Sleep(time.Second * 1)
		tries--
		log.Logger.Infof("database is not available (err: %s), retrying %d more time(s)", err, tries)

		if tries == 0 {
			log.Logger.Fatalf("database did not become available within %d connection attempts", connectionAttempts)
		}
	}

	if cfg.SkipMigrations {
		log.Logger.Info("skipping database migrations because they are disabled")
		return
	}

	if err := MigrateDatabase(db, cfg); err != nil {
		log.Logger.Fatalf("failed to migrate database: %s", err)
	}
}
