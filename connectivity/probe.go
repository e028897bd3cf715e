package connectivity

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"planlux/hale-sync/log"

	"github.com/sirupsen/logrus"
)

const (
	DefaultURL     = "https://clients3.google.com/generate_204"
	DefaultTimeout = 5 * time.Second
)

type Probe struct {
	url    string
	client *http.Client
}

func NewProbe(url string, timeout time.Duration) *Probe {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Probe{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// CheckInternet reports whether a round-trip to the probe endpoint completed
// with a 2xx status. Every failure is reported as false.
func (p *Probe) CheckInternet(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		log.Logger.WithError(err).Debug("unable to build connectivity probe request")
		return false
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		log.Logger.WithError(err).Debug("connectivity probe failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Logger.WithFields(logrus.Fields{"url": p.url, "status": resp.StatusCode}).Debug("connectivity probe completed")

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

type checker interface {
	CheckInternet(ctx context.Context) bool
}

// Monitor caches the last probe outcome so callers get a synchronous answer.
type Monitor struct {
	probe  checker
	online atomic.Bool
}

func NewMonitor(c checker) *Monitor {
	return &Monitor{probe: c}
}

// Refresh runs the probe once and stores the result.
func (m *Monitor) Refresh(ctx context.Context) bool {
	now := m.probe.CheckInternet(ctx)
	if prev := m.online.Swap(now); prev != now {
		log.Logger.WithField("online", now).Info("connectivity changed")
	}

	return now
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}
