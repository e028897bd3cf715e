package pricing

import (
	"context"
	"database/sql"
	"time"

	"planlux/hale-sync/config"
	s "planlux/hale-sync/data/sql"
	"planlux/hale-sync/log"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNoSnapshot is returned when nothing has been cached yet.
var ErrNoSnapshot = errors.New("pricing: no snapshot cached")

type queryProvider interface {
	PricingVersionSql() string
	PricingLatestSql() string
	PricingDeleteSql() string
	PricingInsertSql() string
}

type Repository struct {
	db            *sql.DB
	queryProvider queryProvider
}

func NewRepository(db *sql.DB, cfg *config.Config) Repository {
	return Repository{
		db:            db,
		queryProvider: newQueryProvider(cfg.DBDriver),
	}
}

// GetLocalVersion returns the highest cached pricing version, or 0 when the
// cache is empty.
func (r Repository) GetLocalVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.QueryRowContext(ctx, r.queryProvider.PricingVersionSql()).Scan(&v); err != nil {
		return 0, errors.Wrap(err, "pricing: error reading local version")
	}

	return v, nil
}

func (r Repository) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx, r.queryProvider.PricingLatestSql())

	snap := &Snapshot{}
	var cennik, dodatki, standard string
	var fetchedAt int64
	err := row.Scan(&snap.Version, &snap.LastUpdated, &cennik, &dodatki, &standard, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, errors.Wrap(err, "pricing: error reading snapshot")
	}

	snap.Cennik = []byte(cennik)
	snap.Dodatki = []byte(dodatki)
	snap.Standard = []byte(standard)
	snap.FetchedAt = time.UnixMilli(fetchedAt).UTC()

	return snap, nil
}

// SavePricingSnapshot replaces whatever is cached with snap in a single
// transaction. A failure leaves the previous snapshot in place.
func (r Repository) SavePricingSnapshot(ctx context.Context, snap Snapshot) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "pricing: unable to start transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Logger.WithError(rbErr).Error("pricing: error rolling back snapshot transaction")
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, r.queryProvider.PricingDeleteSql()); err != nil {
		return errors.Wrap(err, "pricing: error clearing previous snapshot")
	}

	_, err = tx.ExecContext(ctx, r.queryProvider.PricingInsertSql(),
		snap.Version, snap.LastUpdated, string(snap.Cennik), string(snap.Dodatki), string(snap.Standard), snap.FetchedAt.UTC().UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "pricing: error storing snapshot version %d", snap.Version)
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "pricing: error committing snapshot")
	}

	log.Logger.WithFields(logrus.Fields{"version": snap.Version, "last_updated": snap.LastUpdated}).Info("pricing snapshot replaced")

	return nil
}

func newQueryProvider(d config.DbDriver) queryProvider {
	switch true {
	case d.Postgres():
		return &s.PostgresQueryProvider{}
	case d.MySQL():
		return &s.MysqlQueryProvider{}
	}

	return &s.SqliteQueryProvider{}
}
