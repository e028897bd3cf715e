package pricing

import (
	"context"
	"time"

	"planlux/hale-sync/log"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Storage interface {
	GetLocalVersion(ctx context.Context) (int64, error)
	SavePricingSnapshot(ctx context.Context, snap Snapshot) error
}

type Fetcher interface {
	FetchBase(ctx context.Context) (*Base, error)
}

type Result struct {
	LocalVersion  int64 `json:"localVersion"`
	RemoteVersion int64 `json:"remoteVersion"`
	Updated       bool  `json:"updated"`
}

type Reconciler struct {
	storage Storage
	fetcher Fetcher
	now     func() time.Time
}

func NewReconciler(s Storage, f Fetcher) *Reconciler {
	return &Reconciler{storage: s, fetcher: f, now: time.Now}
}

// Reconcile downloads the remote base and stores it only when it is newer
// than the cached snapshot. On any error the cache is left as it was.
func (r *Reconciler) Reconcile(ctx context.Context) (Result, error) {
	res := Result{}

	local, err := r.storage.GetLocalVersion(ctx)
	if err != nil {
		return res, err
	}
	res.LocalVersion = local

	base, err := r.fetcher.FetchBase(ctx)
	if err != nil {
		return res, errors.Wrap(err, "pricing: unable to fetch remote base")
	}
	if base == nil {
		return res, errors.New("pricing: remote base is empty")
	}
	res.RemoteVersion = base.Version

	fields := logrus.Fields{"local_version": local, "remote_version": base.Version}
	if base.Version <= local {
		log.Logger.WithFields(fields).Debug("local pricing is up-to-date")
		return res, nil
	}

	if err := r.storage.SavePricingSnapshot(ctx, base.Snapshot(r.now())); err != nil {
		return res, err
	}

	log.Logger.WithFields(fields).Info("pricing updated from remote base")
	res.Updated = true

	return res, nil
}
