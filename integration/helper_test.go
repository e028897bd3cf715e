//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"planlux/hale-sync/api"
	"planlux/hale-sync/config"
	"planlux/hale-sync/connectivity"
	"planlux/hale-sync/data"
	h "planlux/hale-sync/integration/http"
	"planlux/hale-sync/outbox"
	"planlux/hale-sync/outbox/flusher"
	"planlux/hale-sync/pricing"
)

var (
	cfg        *config.Config
	db         *sql.DB
	repo       outbox.Repository
	pricingDB  pricing.Repository
	backend    *h.Backend
	server     *httptest.Server
	client     *api.Client
	monitor    *connectivity.Monitor
	flush      *flusher.Flusher
	reconciler *pricing.Reconciler
)

func init() {
	backend = h.NewBackend()
	server = httptest.NewServer(backend)
	setupConfig()

	db, _ = data.NewDB(cfg)

	repo = outbox.NewRepository(db, cfg)
	pricingDB = pricing.NewRepository(db, cfg)
	client = api.New(cfg.APIBaseURL, cfg.APIToken, cfg.GetAPITimeout())
	monitor = connectivity.NewMonitor(connectivity.NewProbe(cfg.ProbeURL, cfg.GetProbeTimeout()))
	flush = flusher.New(flusher.FlushContext{
		Storage:      repo,
		API:          client,
		IsOnline:     monitor.Online,
		GenericEmail: client,
	})
	reconciler = pricing.NewReconciler(pricingDB, client)
}

func setupConfig() *config.Config {
	dir, err := os.MkdirTemp("", "hale-sync-integration")
	if err != nil {
		panic(fmt.Sprintf("unable to create a temp dir for integration tests: %s", err))
	}

	cfg = &config.Config{
		DBDriver:         config.SQLite,
		DBPath:           filepath.Join(dir, "hale.db"),
		DataDir:          dir,
		APIBaseURL:       server.URL + "/exec",
		APIToken:         "integration",
		APITimeoutMs:     2000,
		ProbeURL:         server.URL + "/generate_204",
		ProbeTimeoutMs:   1000,
		OutboxMaxRetries: 3,
	}

	return cfg
}

func resetState() {
	backend.Reset()
	for _, table := range []string{"outbox", "pricing_cache", "pdfs"} {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s;", table)); err != nil {
			panic(fmt.Sprintf("an error occurred cleaning the %s table for tests: %s", table, err))
		}
	}
}

func enqueue(op outbox.OperationType, payload interface{}) *outbox.Record {
	rec, err := repo.Enqueue(context.Background(), op, payload)
	if err != nil {
		panic(fmt.Sprintf("failed to enqueue %s record: %s", op, err))
	}
	// keep creation times strictly increasing within the same tier
	time.Sleep(2 * time.Millisecond)
	return rec
}

func runPass() flusher.Result {
	ctx := context.Background()
	monitor.Refresh(ctx)

	res, err := flush.Flush(ctx)
	if err != nil {
		panic(fmt.Sprintf("flush pass failed: %s", err))
	}

	return res
}

type row struct {
	RetryCount  int
	LastError   sql.NullString
	ProcessedAt sql.NullInt64
	Errored     bool
}

func getRecord(id string) row {
	var r row
	err := db.QueryRow("SELECT retry_count, last_error, processed_at, errored FROM outbox WHERE id = ?", id).
		Scan(&r.RetryCount, &r.LastError, &r.ProcessedAt, &r.Errored)
	if err != nil {
		panic(fmt.Sprintf("an error occurred reading outbox record %s: %s", id, err))
	}
	return r
}

func recordExists(id string) bool {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM outbox WHERE id = ?", id).Scan(&count); err != nil {
		panic(err)
	}
	return count > 0
}
