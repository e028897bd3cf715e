package outbox

import (
	"time"
)

type OperationType string

const (
	OpHeartbeat        OperationType = "HEARTBEAT"
	OpLogPdf           OperationType = "LOG_PDF"
	OpSendEmail        OperationType = "SEND_EMAIL"
	OpLogEmail         OperationType = "LOG_EMAIL"
	OpOfferSync        OperationType = "OFFER_SYNC"
	OpSendGenericEmail OperationType = "SEND_GENERIC_EMAIL"
)

// PriorityOrder lists the operation types in the order pending records are
// drained. Types not listed here share the lowest tier.
var PriorityOrder = []OperationType{
	OpHeartbeat,
	OpLogPdf,
	OpSendEmail,
	OpLogEmail,
	OpOfferSync,
}

// Priority returns the drain tier of op, 1 being drained first.
func Priority(op OperationType) int {
	for i, o := range PriorityOrder {
		if o == op {
			return i + 1
		}
	}
	return len(PriorityOrder) + 1
}

func (o OperationType) Known() bool {
	switch o {
	case OpHeartbeat, OpLogPdf, OpSendEmail, OpLogEmail, OpOfferSync, OpSendGenericEmail:
		return true
	}
	return false
}

func (o OperationType) String() string {
	return string(o)
}

type Record struct {
	Id            string
	OperationType OperationType
	PayloadJson   []byte
	RetryCount    int
	MaxRetries    int
	LastError     string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	Errored       bool
}

func (r *Record) Pending() bool {
	return r.ProcessedAt == nil
}

// CanRetry reports whether one more failure still leaves the record pending.
// The failure that brings the attempt count up to MaxRetries is terminal.
func (r *Record) CanRetry() bool {
	return r.RetryCount+1 < r.MaxRetries
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
