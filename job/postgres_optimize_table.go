package job

import (
	"context"
	"database/sql"
	"fmt"

	"planlux/hale-sync/log"
)

type postgresOptimizeTable struct {
	Db         *sql.DB
	TableNames []string
}

func (o *postgresOptimizeTable) Execute(ctx context.Context) error {
	for _, table := range o.TableNames {
		if _, err := o.Db.ExecContext(ctx, fmt.Sprintf("VACUUM %s;", table)); err != nil {
			log.Logger.WithError(err).WithField("table", table).Error("an error occurred vacuuming the Postgres table")
			return err
		}
	}

	log.Logger.Info("optimized Postgres tables successfully")

	return nil
}
