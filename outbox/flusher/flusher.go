package flusher

import (
	"context"
	"sync/atomic"

	"planlux/hale-sync/log"
	"planlux/hale-sync/outbox"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrFlushInProgress is returned by Flusher.Flush when another pass over the
// same storage has not finished yet.
var ErrFlushInProgress = errors.New("flusher: a flush pass is already in flight")

type Storage interface {
	GetPending(ctx context.Context) ([]*outbox.Record, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string, incrementRetry bool) error
}

type API interface {
	Heartbeat(ctx context.Context, p outbox.HeartbeatPayload) error
	LogPdf(ctx context.Context, p outbox.PdfLogPayload) error
	SendEmail(ctx context.Context, p outbox.SendEmailPayload) error
	LogEmail(ctx context.Context, p outbox.EmailLogPayload) error
	SyncOffer(ctx context.Context, p outbox.OfferSyncPayload) error
}

type GenericEmailSender interface {
	SendGenericEmail(ctx context.Context, e outbox.GenericEmail) error
}

type FlushContext struct {
	Storage      Storage
	API          API
	IsOnline     func() bool
	GenericEmail GenericEmailSender
}

type Result struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// permanentError marks a failure that no later pass can fix.
type permanentError struct {
	error
}

func (p permanentError) Unwrap() error {
	return p.error
}

// FlushOutbox runs a single pass over the pending records in the order the
// storage returns them. Per-record outcomes are written back to storage; an
// error is only returned when storage itself fails.
func FlushOutbox(ctx context.Context, fc FlushContext) (Result, error) {
	res := Result{}

	pending, err := fc.Storage.GetPending(ctx)
	if err != nil {
		return res, errors.Wrap(err, "flusher: unable to fetch pending records")
	}

	if fc.IsOnline == nil || !fc.IsOnline() {
		log.Logger.WithField("pending", len(pending)).Debug("skipping flush pass whilst offline")
		return res, nil
	}

	for _, rec := range pending {
		fields := logrus.Fields{"id": rec.Id, "operation_type": rec.OperationType, "retry_count": rec.RetryCount}

		dispatchErr := dispatch(ctx, fc, rec)
		if dispatchErr == nil {
			if err := fc.Storage.MarkProcessed(ctx, rec.Id); err != nil {
				if errors.Is(err, outbox.ErrNotPending) {
					log.Logger.WithFields(fields).Warn("record was no longer pending when marking it processed")
					continue
				}
				return res, errors.Wrapf(err, "flusher: unable to mark record %s as processed", rec.Id)
			}
			log.Logger.WithFields(fields).Debug("outbox record delivered")
			res.Processed++
			continue
		}

		var perm permanentError
		incrementRetry := rec.CanRetry() && !errors.As(dispatchErr, &perm)

		if err := fc.Storage.MarkFailed(ctx, rec.Id, dispatchErr.Error(), incrementRetry); err != nil {
			if !errors.Is(err, outbox.ErrNotPending) {
				return res, errors.Wrapf(err, "flusher: unable to mark record %s as failed", rec.Id)
			}
			log.Logger.WithFields(fields).Warn("record was no longer pending when marking it failed")
		}

		fields["increment_retry"] = incrementRetry
		log.Logger.WithFields(fields).WithError(dispatchErr).Info("outbox record delivery failed")
		res.Failed++
	}

	return res, nil
}

func dispatch(ctx context.Context, fc FlushContext, rec *outbox.Record) error {
	switch rec.OperationType {
	case outbox.OpHeartbeat:
		var p outbox.HeartbeatPayload
		if err := rec.Decode(&p); err != nil {
			return permanentError{err}
		}
		return fc.API.Heartbeat(ctx, p)
	case outbox.OpLogPdf:
		var p outbox.PdfLogPayload
		if err := rec.Decode(&p); err != nil {
			return permanentError{err}
		}
		return fc.API.LogPdf(ctx, p)
	case outbox.OpSendEmail:
		var p outbox.SendEmailPayload
		if err := rec.Decode(&p); err != nil {
			return permanentError{err}
		}
		return fc.API.SendEmail(ctx, p)
	case outbox.OpLogEmail:
		var p outbox.EmailLogPayload
		if err := rec.Decode(&p); err != nil {
			return permanentError{err}
		}
		return fc.API.LogEmail(ctx, p)
	case outbox.OpOfferSync:
		var p outbox.OfferSyncPayload
		if err := rec.Decode(&p); err != nil {
			return permanentError{err}
		}
		return fc.API.SyncOffer(ctx, p)
	case outbox.OpSendGenericEmail:
		var e outbox.GenericEmail
		if err := rec.Decode(&e); err != nil {
			return permanentError{err}
		}
		if fc.GenericEmail == nil {
			return permanentError{errors.New("no generic email sender configured")}
		}
		return fc.GenericEmail.SendGenericEmail(ctx, e)
	}

	return permanentError{errors.Errorf("unknown operation type %q", rec.OperationType)}
}

// Flusher serialises flush passes over one storage.
type Flusher struct {
	fc       FlushContext
	inFlight atomic.Bool
}

func New(fc FlushContext) *Flusher {
	return &Flusher{fc: fc}
}

func (f *Flusher) Flush(ctx context.Context) (Result, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrFlushInProgress
	}
	defer f.inFlight.Store(false)

	return FlushOutbox(ctx, f.fc)
}
