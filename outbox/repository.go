package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"planlux/hale-sync/config"
	s "planlux/hale-sync/data/sql"
	"planlux/hale-sync/log"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const table = "outbox"

var (
	// ErrNotPending is returned when a state change targets a record that has
	// already left the pending set.
	ErrNotPending = errors.New("outbox: record is not pending")

	columns = []string{"id", "operation_type", "payload_json", "retry_count", "max_retries", "last_error", "created_at", "processed_at", "errored"}
)

type queryProvider interface {
	InsertSql() string
	PendingFetchSql() string
	MarkProcessedSql() string
	MarkRetrySql() string
	MarkTerminalSql() string
	FailedFetchSql() string
	DeleteProcessedSql() string
	GetQueueSizeSql() string
	GetTotalSizeSql() string
	GetFailedSizeSql() string
}

type Repository struct {
	db            *sql.DB
	cfg           *config.Config
	queryProvider queryProvider
	now           func() time.Time
}

func NewRepository(db *sql.DB, cfg *config.Config) Repository {
	return NewRepositoryWithQueryProvider(db, cfg, newQueryProvider(cfg.DBDriver, table, columns))
}

func NewRepositoryWithQueryProvider(db *sql.DB, cfg *config.Config, qp queryProvider) Repository {
	return Repository{
		db:            db,
		cfg:           cfg,
		queryProvider: qp,
		now:           time.Now,
	}
}

// WithClock returns a copy of the repository that stamps records using now.
func (r Repository) WithClock(now func() time.Time) Repository {
	r.now = now
	return r
}

// Enqueue durably stores a new pending operation and returns immediately; it
// never touches the network.
func (r Repository) Enqueue(ctx context.Context, op OperationType, payload interface{}) (*Record, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "outbox: unable to serialise %s payload", op)
	}

	rec := &Record{
		Id:            uuid.New().String(),
		OperationType: op,
		PayloadJson:   body,
		MaxRetries:    r.cfg.OutboxMaxRetries,
		CreatedAt:     r.now().UTC(),
	}

	_, err = r.db.ExecContext(ctx, r.queryProvider.InsertSql(),
		rec.Id, string(rec.OperationType), string(rec.PayloadJson), rec.RetryCount, rec.MaxRetries, nil, toMillis(rec.CreatedAt), nil, false)
	if err != nil {
		return nil, errors.Wrapf(err, "outbox: error enqueuing %s record", op)
	}

	log.Logger.WithFields(logrus.Fields{"id": rec.Id, "operation_type": op}).Debug("enqueued outbox record")

	return rec, nil
}

// GetPending returns every pending record ordered by priority tier and then
// by creation time. The flush engine relies on this order.
func (r Repository) GetPending(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, r.queryProvider.PendingFetchSql())
	if err != nil {
		return nil, errors.Wrap(err, "outbox: error fetching pending records")
	}

	return scanRecords(rows)
}

func (r Repository) MarkProcessed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.queryProvider.MarkProcessedSql(), toMillis(r.now()), id)
	if err != nil {
		return errors.Wrapf(err, "outbox: error marking record %s as processed", id)
	}

	return requireAffected(res, id)
}

// MarkFailed records a failed delivery attempt. With incrementRetry the
// record stays pending for the next pass; without it the record is moved to
// the terminal failed state in the same statement.
func (r Repository) MarkFailed(ctx context.Context, id, reason string, incrementRetry bool) error {
	var res sql.Result
	var err error
	if incrementRetry {
		res, err = r.db.ExecContext(ctx, r.queryProvider.MarkRetrySql(), reason, id)
	} else {
		res, err = r.db.ExecContext(ctx, r.queryProvider.MarkTerminalSql(), reason, toMillis(r.now()), id)
	}

	log.Logger.WithFields(logrus.Fields{"id": id, "error_reason": reason, "increment_retry": incrementRetry}).Debug("updating failed record")

	if err != nil {
		return errors.Wrapf(err, "outbox: error marking record %s as failed", id)
	}

	return requireAffected(res, id)
}

// GetFailed returns terminal-failed records, most recent first.
func (r Repository) GetFailed(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, r.queryProvider.FailedFetchSql(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "outbox: error fetching failed records")
	}

	return scanRecords(rows)
}

func (r Repository) DeleteProcessed(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.queryProvider.DeleteProcessedSql(), toMillis(olderThan))
	if err != nil {
		return 0, errors.Wrap(err, "outbox: error deleting processed records")
	}

	return res.RowsAffected()
}

func (r Repository) GetQueueSize() (uint, error) {
	return r.count(r.queryProvider.GetQueueSizeSql())
}

func (r Repository) GetTotalSize() (uint, error) {
	return r.count(r.queryProvider.GetTotalSizeSql())
}

func (r Repository) GetFailedSize() (uint, error) {
	return r.count(r.queryProvider.GetFailedSizeSql())
}

func (r Repository) count(q string) (uint, error) {
	res := r.db.QueryRow(q)

	var count uint
	err := res.Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func scanRecords(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec := &Record{}
		var op string
		var lastError sql.NullString
		var createdAt int64
		var processedAt sql.NullInt64

		err := rows.Scan(&rec.Id, &op, &rec.PayloadJson, &rec.RetryCount, &rec.MaxRetries, &lastError, &createdAt, &processedAt, &rec.Errored)
		if err != nil {
			return nil, errors.Wrap(err, "outbox: error scanning record into memory")
		}

		rec.OperationType = OperationType(op)
		rec.LastError = lastError.String
		rec.CreatedAt = fromMillis(createdAt)
		if processedAt.Valid {
			t := fromMillis(processedAt.Int64)
			rec.ProcessedAt = &t
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "outbox: error iterating records")
	}

	return records, nil
}

// the drivers we use never return an error from RowsAffected, so one is
// treated the same as a record that was no longer pending
func requireAffected(res sql.Result, id string) error {
	count, _ := res.RowsAffected()
	if count < 1 {
		return errors.Wrapf(ErrNotPending, "record %s", id)
	}

	return nil
}

func newQueryProvider(d config.DbDriver, table string, columns []string) queryProvider {
	priorities := make([]string, len(PriorityOrder))
	for i, op := range PriorityOrder {
		priorities[i] = string(op)
	}

	switch true {
	case d.Postgres():
		return &s.PostgresQueryProvider{
			Table:      table,
			Columns:    columns,
			Priorities: priorities,
		}
	case d.MySQL():
		return &s.MysqlQueryProvider{
			Table:      table,
			Columns:    columns,
			Priorities: priorities,
		}
	case d.SQLite():
		return &s.SqliteQueryProvider{
			Table:      table,
			Columns:    columns,
			Priorities: priorities,
		}
	}

	return nil
}
