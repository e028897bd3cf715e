package http

import (
	"context"
	"net/http"

	"planlux/hale-sync/log"
)

type healthzHandler struct {
	db    Pinger
	probe Checker
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Checker interface {
	CheckInternet(ctx context.Context) bool
}

// NewHealthzHandler reports liveness from the local store alone. With
// ?readiness=1 the backend also has to be reachable.
func NewHealthzHandler(db Pinger, probe Checker) http.Handler {
	return &healthzHandler{
		db:    db,
		probe: probe,
	}
}

func (h healthzHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	healthy := h.checkDatabase(req.Context())
	if healthy && req.URL.Query().Get("readiness") == "1" {
		healthy = h.checkConnectivity(req.Context())
	}

	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}

func (h healthzHandler) checkDatabase(ctx context.Context) bool {
	if err := h.db.PingContext(ctx); err != nil {
		log.Logger.WithError(err).Debug("local database is not available")
		return false
	}
	return true
}

func (h healthzHandler) checkConnectivity(ctx context.Context) bool {
	if h.probe == nil || !h.probe.CheckInternet(ctx) {
		log.Logger.Debug("connectivity probe failed during readiness check")
		return false
	}
	return true
}
