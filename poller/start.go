package poller

import (
	"context"
	"time"

	"planlux/hale-sync/config"
	"planlux/hale-sync/log"
	"planlux/hale-sync/outbox"
	"planlux/hale-sync/outbox/flusher"
	"planlux/hale-sync/pricing"
	"planlux/hale-sync/prometheus"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type monitor interface {
	Refresh(ctx context.Context) bool
	Online() bool
}

type flushRunner interface {
	Flush(ctx context.Context) (flusher.Result, error)
}

type queue interface {
	prometheus.Sizer
	Enqueue(ctx context.Context, op outbox.OperationType, payload interface{}) (*outbox.Record, error)
}

type reconciler interface {
	Reconcile(ctx context.Context) (pricing.Result, error)
}

type deviceIdentity interface {
	GetDeviceID() string
}

type Deps struct {
	Monitor    monitor
	Flusher    flushRunner
	Outbox     queue
	Reconciler reconciler
	Identity   deviceIdentity
	Now        func() time.Time
}

// FlushTask refreshes connectivity, runs one flush pass and records the
// outcome in metrics.
func FlushTask(d Deps) Task {
	return func(ctx context.Context) error {
		online := d.Monitor.Refresh(ctx)

		res, err := d.Flusher.Flush(ctx)
		switch {
		case errors.Is(err, flusher.ErrFlushInProgress):
			log.Logger.Debug("previous flush pass still running, skipping tick")
			prometheus.ObserveFlush(prometheus.OutcomeBusy, 0, 0)
			return nil
		case err != nil:
			prometheus.ObserveFlush(prometheus.OutcomeError, 0, 0)
			return err
		case !online:
			prometheus.ObserveFlush(prometheus.OutcomeOffline, 0, 0)
		default:
			prometheus.ObserveFlush(prometheus.OutcomeOk, res.Processed, res.Failed)
		}

		if res.Processed > 0 || res.Failed > 0 {
			log.Logger.WithFields(logrus.Fields{"processed": res.Processed, "failed": res.Failed}).Info("flush pass completed")
		}

		prometheus.RecordSizes(d.Outbox)

		return nil
	}
}

// HousekeepingTask queues a heartbeat and, when online, reconciles the
// pricing cache.
func HousekeepingTask(cfg *config.Config, d Deps) Task {
	now := d.Now
	if now == nil {
		now = time.Now
	}

	return func(ctx context.Context) error {
		_, err := d.Outbox.Enqueue(ctx, outbox.OpHeartbeat, outbox.HeartbeatPayload{
			DeviceID:   d.Identity.GetDeviceID(),
			AppVersion: cfg.AppVersion,
			UserID:     cfg.UserID,
			SentAt:     now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return errors.Wrap(err, "unable to queue heartbeat")
		}

		if !d.Monitor.Refresh(ctx) {
			log.Logger.Debug("offline, skipping pricing reconciliation")
			return nil
		}

		res, err := d.Reconciler.Reconcile(ctx)
		if err != nil {
			return errors.Wrap(err, "pricing reconciliation failed")
		}

		if res.Updated {
			prometheus.SetPricingVersion(res.RemoteVersion)
		} else {
			prometheus.SetPricingVersion(res.LocalVersion)
		}

		return nil
	}
}

// Start launches the flush and housekeeping pollers. The returned function
// stops their tickers.
func Start(ctx context.Context, cfg *config.Config, d Deps) func() {
	log.Logger.WithFields(logrus.Fields{
		"flush_interval":        cfg.GetFlushInterval().String(),
		"housekeeping_interval": cfg.GetHousekeepingInterval().String(),
	}).Info("starting outbox sync pollers")

	flushTicker := time.NewTicker(cfg.GetFlushInterval())
	housekeepingTicker := time.NewTicker(cfg.GetHousekeepingInterval())

	go New("housekeeping", HousekeepingTask(cfg, d), housekeepingTicker.C).Poll(ctx)
	go New("flush", FlushTask(d), flushTicker.C).Poll(ctx)

	return func() {
		flushTicker.Stop()
		housekeepingTicker.Stop()
	}
}
