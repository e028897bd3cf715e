package outbox

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"planlux/hale-sync/config"
	s "planlux/hale-sync/data/sql"
	dbtest "planlux/hale-sync/data/test"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-test/deep"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var (
	fixedNow   = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	priorities = []string{"HEARTBEAT", "LOG_PDF", "SEND_EMAIL", "LOG_EMAIL", "OFFER_SYNC"}
)

func TestNewRepository(t *testing.T) {
	db, _, _ := sqlmock.New()

	tests := []struct {
		name             string
		driver           config.DbDriver
		expQueryProvider queryProvider
	}{
		{
			name:             "sqlite query provider",
			driver:           config.SQLite,
			expQueryProvider: &s.SqliteQueryProvider{Table: "outbox", Columns: columns, Priorities: priorities},
		},
		{
			name:             "mysql query provider",
			driver:           config.MySQL,
			expQueryProvider: &s.MysqlQueryProvider{Table: "outbox", Columns: columns, Priorities: priorities},
		},
		{
			name:             "postgres query provider",
			driver:           config.Postgres,
			expQueryProvider: &s.PostgresQueryProvider{Table: "outbox", Columns: columns, Priorities: priorities},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRepository(db, &config.Config{DBDriver: tt.driver})
			if diff := deep.Equal(tt.expQueryProvider, got.queryProvider); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestRepository_Enqueue(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	payload := HeartbeatPayload{DeviceID: "ABCDEF0123456789", AppVersion: "1.4.0", SentAt: "2026-03-14T09:30:00Z"}
	expJson := `{"deviceId":"ABCDEF0123456789","appVersion":"1.4.0","sentAt":"2026-03-14T09:30:00Z"}`

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).
		WithArgs(sqlmock.AnyArg(), "HEARTBEAT", expJson, 0, 5, nil, fixedNow.UnixMilli(), nil, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := repo.Enqueue(context.Background(), OpHeartbeat, payload)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if rec.Id == "" {
		t.Error("expected the record to be assigned an ID")
	}
	if rec.RetryCount != 0 || rec.MaxRetries != 5 {
		t.Errorf("unexpected retry settings: %d/%d", rec.RetryCount, rec.MaxRetries)
	}
	if !rec.CreatedAt.Equal(fixedNow) {
		t.Errorf("expected created at %s, got %s", fixedNow, rec.CreatedAt)
	}
	if !rec.Pending() {
		t.Error("a new record should be pending")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRepository_EnqueueWithDatabaseError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	mock.ExpectExec("INSERT INTO outbox").WillReturnError(errors.New("disk I/O error"))

	rec, err := repo.Enqueue(context.Background(), OpLogPdf, PdfLogPayload{PdfID: "p1"})
	if err == nil {
		t.Fatal("expected an error but got nil")
	}
	if rec != nil {
		t.Errorf("expected no record but got %v", rec)
	}
}

func TestRepository_GetPending(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	processed := fixedNow.Add(time.Minute)
	rows := sqlmock.NewRows(columns).
		AddRow("a", "HEARTBEAT", []byte(`{}`), 0, 5, nil, fixedNow.UnixMilli(), nil, false).
		AddRow("b", "LOG_PDF", []byte(`{"pdfId":"x"}`), 2, 5, "HTTP 500", fixedNow.UnixMilli()+1, processed.UnixMilli(), true)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, operation_type")).WillReturnRows(rows)

	got, err := repo.GetPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	exp := []*Record{
		{Id: "a", OperationType: OpHeartbeat, PayloadJson: []byte(`{}`), MaxRetries: 5, CreatedAt: fixedNow},
		{Id: "b", OperationType: OpLogPdf, PayloadJson: []byte(`{"pdfId":"x"}`), RetryCount: 2, MaxRetries: 5, LastError: "HTTP 500", CreatedAt: fixedNow.Add(time.Millisecond), ProcessedAt: &processed, Errored: true},
	}

	if diff := deep.Equal(exp, got); diff != nil {
		t.Error(diff)
	}
}

func TestRepository_GetPendingWithQueryError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("locked"))

	if _, err := repo.GetPending(context.Background()); err == nil {
		t.Error("expected an error but got nil")
	}
}

func TestRepository_MarkProcessed(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox SET processed_at = ?, last_error = NULL WHERE id = ? AND processed_at IS NULL")).
		WithArgs(fixedNow.UnixMilli(), "abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkProcessed(context.Background(), "abc"); err != nil {
		t.Errorf("unexpected error: %s", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRepository_MarkProcessedWhenNotPending(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	mock.ExpectExec("UPDATE outbox").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkProcessed(context.Background(), "abc")
	if !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending but got %v", err)
	}
}

func TestRepository_MarkFailed(t *testing.T) {
	tests := []struct {
		name           string
		incrementRetry bool
		expSql         string
		expArgs        []driver.Value
	}{
		{
			name:           "retryable failure",
			incrementRetry: true,
			expSql:         "UPDATE outbox SET retry_count = retry_count + 1, last_error = ? WHERE id = ? AND processed_at IS NULL AND retry_count < max_retries",
			expArgs:        []driver.Value{"HTTP 503", "abc"},
		},
		{
			name:           "terminal failure",
			incrementRetry: false,
			expSql:         "UPDATE outbox SET last_error = ?, errored = 1, processed_at = ? WHERE id = ? AND processed_at IS NULL",
			expArgs:        []driver.Value{"HTTP 503", fixedNow.UnixMilli(), "abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, _ := sqlmock.New()
			repo := newSqliteMockRepository(db)

			mock.ExpectExec(regexp.QuoteMeta(tt.expSql)).
				WithArgs(tt.expArgs...).
				WillReturnResult(sqlmock.NewResult(0, 1))

			if err := repo.MarkFailed(context.Background(), "abc", "HTTP 503", tt.incrementRetry); err != nil {
				t.Errorf("unexpected error: %s", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestRepository_MarkFailedWithDatabaseError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	mock.ExpectExec("UPDATE outbox").WillReturnError(errors.New("oops"))

	err := repo.MarkFailed(context.Background(), "abc", "boom", true)
	if err == nil || errors.Is(err, ErrNotPending) {
		t.Errorf("expected a database error but got %v", err)
	}
}

func TestRepository_DeleteProcessed(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	olderThan := fixedNow.Add(-720 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM outbox WHERE processed_at IS NOT NULL AND processed_at <= ?")).
		WithArgs(olderThan.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	got, err := repo.DeleteProcessed(context.Background(), olderThan)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != 7 {
		t.Errorf("expected 7 deleted rows but got %d", got)
	}
}

func TestRepository_DeleteProcessedError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	dbErr := errors.New("database is locked")
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM outbox")).WillReturnError(dbErr)

	_, err := repo.DeleteProcessed(context.Background(), fixedNow)
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected the driver error to be wrapped, got %v", err)
	}
	if exp := "outbox: error deleting processed records: database is locked"; err.Error() != exp {
		t.Errorf("expected error %q but got %q", exp, err.Error())
	}
}

func TestRepository_Sizes(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := newSqliteMockRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM outbox WHERE processed_at IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM outbox")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM outbox WHERE errored = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	queue, err := repo.GetQueueSize()
	if err != nil || queue != 3 {
		t.Errorf("expected queue size 3, got %d (err: %v)", queue, err)
	}
	total, err := repo.GetTotalSize()
	if err != nil || total != 10 {
		t.Errorf("expected total size 10, got %d (err: %v)", total, err)
	}
	failed, err := repo.GetFailedSize()
	if err != nil || failed != 1 {
		t.Errorf("expected failed size 1, got %d (err: %v)", failed, err)
	}
}

func TestRepository_SqliteLifecycle(t *testing.T) {
	db := dbtest.NewSqliteDB(t)
	clock := fixedNow
	repo := NewRepository(db, &config.Config{DBDriver: config.SQLite, OutboxMaxRetries: 2}).
		WithClock(func() time.Time { return clock })
	ctx := context.Background()

	rec, err := repo.Enqueue(ctx, OpSendEmail, SendEmailPayload{OfferID: "o1", To: "client@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if err := repo.MarkFailed(ctx, rec.Id, "HTTP 503", true); err != nil {
		t.Fatalf("unexpected error on retryable failure: %s", err)
	}

	pending, _ := repo.GetPending(ctx)
	if len(pending) != 1 || pending[0].RetryCount != 1 || pending[0].LastError != "HTTP 503" {
		t.Fatalf("unexpected pending set after retryable failure: %+v", pending)
	}

	// the retry guard refuses to push the counter beyond max_retries
	if err := repo.MarkFailed(ctx, rec.Id, "HTTP 503", true); err != nil {
		t.Fatalf("unexpected error on second retryable failure: %s", err)
	}
	if err := repo.MarkFailed(ctx, rec.Id, "HTTP 503", true); !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending once retries are exhausted, got %v", err)
	}

	clock = fixedNow.Add(time.Hour)
	if err := repo.MarkFailed(ctx, rec.Id, "HTTP 400", false); err != nil {
		t.Fatalf("unexpected error on terminal failure: %s", err)
	}

	failed, err := repo.GetFailed(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(failed) != 1 || !failed[0].Errored || failed[0].ProcessedAt == nil || failed[0].LastError != "HTTP 400" {
		t.Fatalf("unexpected failed set: %+v", failed)
	}

	// processed rows are immutable
	if err := repo.MarkProcessed(ctx, rec.Id); !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending for a processed record, got %v", err)
	}

	deleted, err := repo.DeleteProcessed(ctx, clock)
	if err != nil || deleted != 1 {
		t.Errorf("expected 1 deleted row, got %d (err: %v)", deleted, err)
	}
}

func TestRepository_SqliteGetPendingOrder(t *testing.T) {
	db := dbtest.NewSqliteDB(t)
	clock := fixedNow
	repo := NewRepository(db, &config.Config{DBDriver: config.SQLite, OutboxMaxRetries: 5}).
		WithClock(func() time.Time { return clock })
	ctx := context.Background()

	enqueue := func(op OperationType, offset time.Duration) {
		clock = fixedNow.Add(offset)
		if _, err := repo.Enqueue(ctx, op, map[string]string{}); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}

	enqueue(OpOfferSync, 0)
	enqueue(OpHeartbeat, 5*time.Second)
	enqueue(OpSendGenericEmail, -time.Second)
	enqueue(OpLogPdf, 3*time.Second)
	enqueue(OpLogPdf, 1*time.Second)
	enqueue(OpLogEmail, 0)

	pending, err := repo.GetPending(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var got []string
	for _, r := range pending {
		got = append(got, fmt.Sprintf("%s@%d", r.OperationType, r.CreatedAt.Sub(fixedNow)/time.Second))
	}
	exp := []string{"HEARTBEAT@5", "LOG_PDF@1", "LOG_PDF@3", "LOG_EMAIL@0", "OFFER_SYNC@0", "SEND_GENERIC_EMAIL@-1"}

	if diff := deep.Equal(exp, got); diff != nil {
		t.Error(diff)
	}
}

func TestRepository_GetPendingOrderProperty(t *testing.T) {
	db := dbtest.NewSqliteDB(t)
	ctx := context.Background()

	ops := append(append([]OperationType{}, PriorityOrder...), OpSendGenericEmail)

	type entry struct {
		Op     int
		Offset int
	}
	genEntry := gopter.CombineGens(gen.IntRange(0, len(ops)-1), gen.IntRange(0, 86400)).
		Map(func(v []interface{}) entry {
			return entry{Op: v[0].(int), Offset: v[1].(int)}
		})

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("pending records come back ordered by tier then creation time", prop.ForAll(
		func(entries []entry) bool {
			if _, err := db.Exec("DELETE FROM outbox"); err != nil {
				return false
			}

			for _, e := range entries {
				created := fixedNow.Add(time.Duration(e.Offset) * time.Second)
				repo := NewRepository(db, &config.Config{DBDriver: config.SQLite, OutboxMaxRetries: 5}).
					WithClock(func() time.Time { return created })
				if _, err := repo.Enqueue(ctx, ops[e.Op], struct{}{}); err != nil {
					return false
				}
			}

			repo := NewRepository(db, &config.Config{DBDriver: config.SQLite, OutboxMaxRetries: 5})
			pending, err := repo.GetPending(ctx)
			if err != nil || len(pending) != len(entries) {
				return false
			}

			for i := 1; i < len(pending); i++ {
				prev, cur := pending[i-1], pending[i]
				pp, cp := Priority(prev.OperationType), Priority(cur.OperationType)
				if pp > cp {
					return false
				}
				if pp == cp && prev.CreatedAt.After(cur.CreatedAt) {
					return false
				}
			}

			return true
		},
		gen.SliceOf(genEntry),
	))

	properties.TestingRun(t)
}

type mockQueryProvider struct{}

func (m mockQueryProvider) InsertSql() string          { return "INSERT" }
func (m mockQueryProvider) PendingFetchSql() string    { return "SELECT PENDING" }
func (m mockQueryProvider) MarkProcessedSql() string   { return "UPDATE PROCESSED" }
func (m mockQueryProvider) MarkRetrySql() string       { return "UPDATE RETRY" }
func (m mockQueryProvider) MarkTerminalSql() string    { return "UPDATE TERMINAL" }
func (m mockQueryProvider) FailedFetchSql() string     { return "SELECT FAILED" }
func (m mockQueryProvider) DeleteProcessedSql() string { return "DELETE" }
func (m mockQueryProvider) GetQueueSizeSql() string    { return "COUNT PENDING" }
func (m mockQueryProvider) GetTotalSizeSql() string    { return "COUNT ALL" }
func (m mockQueryProvider) GetFailedSizeSql() string   { return "COUNT FAILED" }

func TestNewRepositoryWithQueryProvider(t *testing.T) {
	db, mock, _ := sqlmock.New()
	repo := NewRepositoryWithQueryProvider(db, &config.Config{}, mockQueryProvider{}).
		WithClock(func() time.Time { return fixedNow })

	mock.ExpectQuery("SELECT FAILED").WithArgs(25).WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.GetFailed(context.Background(), 25)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no failed records, got %d", len(got))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func newSqliteMockRepository(db *sql.DB) Repository {
	cfg := &config.Config{DBDriver: config.SQLite, OutboxMaxRetries: 5}
	return NewRepository(db, cfg).WithClock(func() time.Time { return fixedNow })
}
