package job

import (
	"context"
	"database/sql"

	"planlux/hale-sync/log"
)

// sqliteVacuum rebuilds the whole database file; SQLite has no per-table
// equivalent.
type sqliteVacuum struct {
	Db *sql.DB
}

func (o *sqliteVacuum) Execute(ctx context.Context) error {
	if _, err := o.Db.ExecContext(ctx, "VACUUM;"); err != nil {
		log.Logger.WithError(err).Error("an error occurred vacuuming the SQLite database")
		return err
	}

	if _, err := o.Db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		log.Logger.WithError(err).Error("an error occurred optimizing the SQLite query planner statistics")
		return err
	}

	log.Logger.Info("vacuumed SQLite database successfully")

	return nil
}
