package job

import (
	"context"
	"time"

	"planlux/hale-sync/config"
	"planlux/hale-sync/log"
)

type ProcessedDeleter interface {
	DeleteProcessed(ctx context.Context, olderThan time.Time) (int64, error)
}

type cleanup struct {
	pd        ProcessedDeleter
	retention time.Duration
	now       func() time.Time
}

// RunCleanup removes processed outbox records older than the configured
// retention. Pending records are never touched.
func RunCleanup(ctx context.Context, repo ProcessedDeleter, cfg *config.Config) int {
	_, err := newCleanup(repo, cfg.GetCleanupRetention()).Execute(ctx)
	if err != nil {
		return 1
	}

	return 0
}

func newCleanup(pd ProcessedDeleter, retention time.Duration) *cleanup {
	return &cleanup{
		pd:        pd,
		retention: retention,
		now:       time.Now,
	}
}

func (c *cleanup) Execute(ctx context.Context) (int64, error) {
	rows, err := c.pd.DeleteProcessed(ctx, c.now().Add(-c.retention))
	if err != nil {
		log.Logger.WithError(err).Error("an error occurred whilst deleting processed outbox records")
		return 0, err
	}

	log.Logger.Infof("deleted %d processed outbox records", rows)

	return rows, nil
}
