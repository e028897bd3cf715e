//go:build benchmarks
// +build benchmarks

package benchmarks

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"

	"planlux/hale-sync/api"
	"planlux/hale-sync/config"
	"planlux/hale-sync/data"
	"planlux/hale-sync/outbox"
)

var (
	repo      outbox.Repository
	cfg       *config.Config
	db        *sql.DB
	client    *api.Client
	delivered atomic.Int64
)

func init() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	cfg = createConfig(server.URL)

	db, _ = data.NewDB(cfg)
	repo = outbox.NewRepository(db, cfg)
	client = api.New(cfg.APIBaseURL, cfg.APIToken, cfg.GetAPITimeout())
}

func purgeOutboxTable() {
	if _, err := db.Exec("DELETE FROM outbox;"); err != nil {
		panic(fmt.Sprintf("an error occurred cleaning the outbox table for benchmarks: %s", err))
	}
}

func populateOutbox(n int) {
	for i := 0; i < n; i++ {
		op := outbox.PriorityOrder[i%len(outbox.PriorityOrder)]
		if _, err := repo.Enqueue(context.Background(), op, map[string]string{"offerId": fmt.Sprintf("o%d", i)}); err != nil {
			panic(fmt.Sprintf("failed to enqueue outbox record: %s", err))
		}
	}
}

func createConfig(backendURL string) *config.Config {
	dir, err := os.MkdirTemp("", "hale-sync-bench")
	if err != nil {
		panic(err)
	}

	return &config.Config{
		DBDriver:         config.SQLite,
		DBPath:           filepath.Join(dir, "bench.db"),
		DataDir:          dir,
		APIBaseURL:       backendURL,
		APITimeoutMs:     5000,
		OutboxMaxRetries: 5,
	}
}
