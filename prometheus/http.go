package prometheus

import (
	"context"
	"net/http"
	"time"

	"planlux/hale-sync/config"
	h "planlux/hale-sync/http"
	"planlux/hale-sync/log"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

type AdminHandlers struct {
	DB      h.Pinger
	Probe   h.Checker
	Failed  h.FailedLister
	Flusher h.Flusher
}

func NewAdminMux(a AdminHandlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", h.NewHealthzHandler(a.DB, a.Probe))
	mux.Handle("/outbox/failed", h.NewFailedHandler(a.Failed))
	mux.Handle("/outbox/flush", h.NewFlushHandler(a.Flusher))

	return mux
}

// StartHttpServer serves the admin surface until ctx is cancelled.
func StartHttpServer(ctx context.Context, cfg *config.Config, a AdminHandlers) error {
	srv := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           NewAdminMux(a),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Logger.WithError(err).Error("error shutting down admin HTTP server")
		}
	}()

	log.Logger.WithField("addr", cfg.AdminAddr).Info("starting admin HTTP server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start admin HTTP server")
	}

	return nil
}
