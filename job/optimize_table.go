package job

import (
	"context"
	"database/sql"

	"planlux/hale-sync/config"
	s "planlux/hale-sync/data/sql"
	"planlux/hale-sync/log"
)

var tables = []string{"outbox", s.PricingTable, s.PdfTable}

type Optimizer interface {
	Execute(ctx context.Context) error
}

func RunOptimize(ctx context.Context, db *sql.DB, cfg *config.Config) int {
	j := newOptimizeTable(db, tables, cfg.DBDriver)
	if j == nil {
		log.Logger.WithField("driver", cfg.DBDriver).Error("unable to determine the database driver")
		return 1
	}

	if err := j.Execute(ctx); err != nil {
		return 1
	}

	return 0
}

func newOptimizeTable(db *sql.DB, tableNames []string, dr config.DbDriver) Optimizer {
	switch true {
	case dr.SQLite():
		return &sqliteVacuum{Db: db}
	case dr.MySQL():
		return &mysqlOptimizeTable{Db: db, TableNames: tableNames}
	case dr.Postgres():
		return &postgresOptimizeTable{Db: db, TableNames: tableNames}
	}
	return nil
}
