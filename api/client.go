package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"planlux/hale-sync/log"
	"planlux/hale-sync/outbox"
	"planlux/hale-sync/pricing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	ActionHeartbeat        = "heartbeat"
	ActionLogPdf           = "logPdf"
	ActionSendEmail        = "sendEmail"
	ActionLogEmail         = "logEmail"
	ActionSyncOffer        = "syncOffer"
	ActionSendGenericEmail = "sendGenericEmail"
	ActionGetBase          = "getBase"

	maxResponseBytes = 8 << 20
)

// RemoteError is returned when the backend answered but rejected the call.
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("api: %s rejected by backend: %s", e.Action, e.Message)
}

type request struct {
	Action  string      `json:"action"`
	Token   string      `json:"token,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

type envelope struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
}

// Client talks to the spreadsheet-backed backend. All actions go through a
// single endpoint and share one rate limiter.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit limits outgoing calls to rps per second. A non-positive rps
// disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func New(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, o := range opts {
		o(c)
	}

	return c
}

func (c *Client) Heartbeat(ctx context.Context, p outbox.HeartbeatPayload) error {
	return c.call(ctx, ActionHeartbeat, p, nil)
}

func (c *Client) LogPdf(ctx context.Context, p outbox.PdfLogPayload) error {
	return c.call(ctx, ActionLogPdf, p, nil)
}

func (c *Client) SendEmail(ctx context.Context, p outbox.SendEmailPayload) error {
	return c.call(ctx, ActionSendEmail, p, nil)
}

func (c *Client) LogEmail(ctx context.Context, p outbox.EmailLogPayload) error {
	return c.call(ctx, ActionLogEmail, p, nil)
}

func (c *Client) SyncOffer(ctx context.Context, p outbox.OfferSyncPayload) error {
	return c.call(ctx, ActionSyncOffer, p, nil)
}

func (c *Client) SendGenericEmail(ctx context.Context, e outbox.GenericEmail) error {
	return c.call(ctx, ActionSendGenericEmail, e, nil)
}

func (c *Client) FetchBase(ctx context.Context) (*pricing.Base, error) {
	base := &pricing.Base{}
	if err := c.call(ctx, ActionGetBase, nil, base); err != nil {
		return nil, err
	}

	return base, nil
}

func (c *Client) call(ctx context.Context, action string, payload, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "api: %s throttled", action)
	}

	body, err := json.Marshal(request{Action: action, Token: c.token, Payload: payload})
	if err != nil {
		return errors.Wrapf(err, "api: unable to encode %s request", action)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "api: unable to build %s request", action)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "api: %s request failed", action)
	}
	defer resp.Body.Close()

	log.Logger.WithFields(logrus.Fields{
		"action":   action,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("backend call completed")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrapf(err, "api: error reading %s response", action)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("api: %s returned HTTP %d", action, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.Wrapf(err, "api: invalid %s response", action)
	}
	if !env.Ok {
		msg := env.Error
		if msg == "" {
			msg = "unknown error"
		}
		return &RemoteError{Action: action, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrapf(err, "api: unable to decode %s response", action)
		}
	}

	return nil
}
