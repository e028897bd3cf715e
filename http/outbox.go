package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"planlux/hale-sync/log"
	"planlux/hale-sync/outbox"
	"planlux/hale-sync/outbox/flusher"

	"github.com/pkg/errors"
)

const (
	defaultFailedLimit = 50
	maxFailedLimit     = 500
)

type FailedLister interface {
	GetFailed(ctx context.Context, limit int) ([]*outbox.Record, error)
}

type Flusher interface {
	Flush(ctx context.Context) (flusher.Result, error)
}

type failedRecord struct {
	Id            string          `json:"id"`
	OperationType string          `json:"operationType"`
	Payload       json.RawMessage `json:"payload"`
	RetryCount    int             `json:"retryCount"`
	MaxRetries    int             `json:"maxRetries"`
	LastError     string          `json:"lastError"`
	CreatedAt     time.Time       `json:"createdAt"`
	ProcessedAt   *time.Time      `json:"processedAt"`
}

// NewFailedHandler lists terminal-failed records, newest first.
func NewFailedHandler(l FailedLister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		limit := defaultFailedLimit
		if v := req.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			if n > maxFailedLimit {
				n = maxFailedLimit
			}
			limit = n
		}

		records, err := l.GetFailed(req.Context(), limit)
		if err != nil {
			log.Logger.WithError(err).Error("unable to list failed outbox records")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		out := make([]failedRecord, 0, len(records))
		for _, r := range records {
			payload := json.RawMessage(r.PayloadJson)
			if !json.Valid(payload) {
				b, _ := json.Marshal(string(r.PayloadJson))
				payload = b
			}
			out = append(out, failedRecord{
				Id:            r.Id,
				OperationType: r.OperationType.String(),
				Payload:       payload,
				RetryCount:    r.RetryCount,
				MaxRetries:    r.MaxRetries,
				LastError:     r.LastError,
				CreatedAt:     r.CreatedAt,
				ProcessedAt:   r.ProcessedAt,
			})
		}

		writeJson(w, http.StatusOK, out)
	})
}

// NewFlushHandler runs one flush pass on demand.
func NewFlushHandler(f Flusher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		res, err := f.Flush(req.Context())
		switch {
		case errors.Is(err, flusher.ErrFlushInProgress):
			w.WriteHeader(http.StatusConflict)
			return
		case err != nil:
			log.Logger.WithError(err).Error("manual flush pass failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		writeJson(w, http.StatusOK, res)
	})
}

func writeJson(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.WithError(err).Error("unable to write response body")
	}
}
