package job

import (
	"context"
	"database/sql"
	"fmt"

	"planlux/hale-sync/log"
)

type mysqlOptimizeTable struct {
	Db         *sql.DB
	TableNames []string
}

func (o *mysqlOptimizeTable) Execute(ctx context.Context) error {
	for _, table := range o.TableNames {
		if _, err := o.Db.ExecContext(ctx, fmt.Sprintf("OPTIMIZE TABLE `%s`;", table)); err != nil {
			log.Logger.WithError(err).WithField("table", table).Error("an error occurred optimizing the MySQL table")
			return err
		}
	}

	log.Logger.Info("optimized MySQL tables successfully")

	return nil
}
