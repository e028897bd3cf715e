package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"planlux/hale-sync/api"
	"planlux/hale-sync/config"
	"planlux/hale-sync/connectivity"
	"planlux/hale-sync/data"
	"planlux/hale-sync/identity"
	"planlux/hale-sync/job"
	"planlux/hale-sync/log"
	"planlux/hale-sync/outbox"
	"planlux/hale-sync/outbox/flusher"
	"planlux/hale-sync/poller"
	"planlux/hale-sync/pricing"
	"planlux/hale-sync/prometheus"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	cfg, err := config.NewConfig()
	if err != nil {
		log.Logger.Fatalf("unable to create configuration: %s", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	db, dbClose := data.NewDB(cfg)
	defer dbClose()

	repo := outbox.NewRepository(db, cfg)

	var exitCode int
	switch {
	case cfg.RunCleanup:
		exitCode = job.RunCleanup(ctx, repo, cfg)
	case cfg.RunOptimize:
		exitCode = job.RunOptimize(ctx, db, cfg)
	default:
		exitCode = runMainApp(ctx, db, repo, cfg)
	}

	if exitCode > 0 {
		dbClose() // we call this manually because os.Exit() does not respect defer
		os.Exit(exitCode)
	}
}

func runMainApp(ctx context.Context, db *sql.DB, repo outbox.Repository, cfg *config.Config) int {
	log.Logger.WithField("config", cfg).Info("starting planlux sync engine")

	client := api.New(cfg.APIBaseURL, cfg.APIToken, cfg.GetAPITimeout(), api.WithRateLimit(cfg.APIRequestsPerSecond, 1))
	probe := connectivity.NewProbe(cfg.ProbeURL, cfg.GetProbeTimeout())
	monitor := connectivity.NewMonitor(probe)

	f := flusher.New(flusher.FlushContext{
		Storage:      repo,
		API:          client,
		IsOnline:     monitor.Online,
		GenericEmail: client,
	})

	stopPollers := poller.Start(ctx, cfg, poller.Deps{
		Monitor:    monitor,
		Flusher:    f,
		Outbox:     repo,
		Reconciler: pricing.NewReconciler(pricing.NewRepository(db, cfg), client),
		Identity:   identity.NewProvider(cfg.GetDeviceIDPath()),
	})
	defer stopPollers()

	serveAdmin(ctx, func(ctx context.Context) error {
		return prometheus.StartHttpServer(ctx, cfg, prometheus.AdminHandlers{
			DB:      db,
			Probe:   probe,
			Failed:  repo,
			Flusher: f,
		})
	})

	return 0
}

// serveAdmin blocks until ctx is done. A failing admin server, e.g. a second
// instance holding the port, is logged and the pollers keep running.
func serveAdmin(ctx context.Context, serve func(ctx context.Context) error) {
	if err := serve(ctx); err != nil {
		log.Logger.WithError(err).Error("admin HTTP server unavailable, sync continues without it")
	}

	<-ctx.Done()
}
