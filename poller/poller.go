package poller

import (
	"context"
	"time"

	"planlux/hale-sync/log"
)

type Task func(ctx context.Context) error

// Poller runs a task once on start and then once per tick. The task runs on
// the polling goroutine, so a slow task delays the next tick instead of
// overlapping with itself.
type Poller struct {
	name  string
	task  Task
	ticks <-chan time.Time
}

func New(name string, task Task, ticks <-chan time.Time) *Poller {
	return &Poller{
		name:  name,
		task:  task,
		ticks: ticks,
	}
}

func (p *Poller) Poll(ctx context.Context) {
	logger := log.Logger.WithField("poller", p.name)
	logger.Debug("poller started")

	for {
		if err := p.task(ctx); err != nil {
			logger.WithError(err).Errorf("an unexpected error occurred in the %s poller: %s", p.name, err)
		}

		select {
		case <-ctx.Done():
			logger.Debug("poller stopped")
			return
		case _, ok := <-p.ticks:
			if !ok {
				return
			}
		}
	}
}
