package test

import (
	"context"
	"errors"
	"sync"
	"time"

	"planlux/hale-sync/outbox"
)

type FailedCall struct {
	Id             string
	Reason         string
	IncrementRetry bool
}

// MockStorage is an in-memory outbox that records every mutation made on it.
type MockStorage struct {
	sync.RWMutex
	pending          []*outbox.Record
	failedRecords    []*outbox.Record
	processed        []string
	failed           []FailedCall
	getPendingCalls  int
	returnError      bool
	markError        error
	mockQueueSize    uint
	mockTotalSize    uint
	mockFailedSize   uint
	deletedRowsCount int64
	enqueued         []*outbox.Record
}

func NewMockStorage(pending ...*outbox.Record) *MockStorage {
	return &MockStorage{pending: pending}
}

func (ms *MockStorage) Enqueue(_ context.Context, op outbox.OperationType, _ interface{}) (*outbox.Record, error) {
	ms.Lock()
	defer ms.Unlock()
	if ms.returnError {
		return nil, errors.New("oops")
	}

	rec := &outbox.Record{Id: op.String(), OperationType: op, MaxRetries: 5, CreatedAt: time.Now()}
	ms.enqueued = append(ms.enqueued, rec)

	return rec, nil
}

func (ms *MockStorage) GetPending(_ context.Context) ([]*outbox.Record, error) {
	ms.Lock()
	defer ms.Unlock()
	ms.getPendingCalls++

	if ms.returnError {
		return nil, errors.New("oops")
	}

	return ms.pending, nil
}

func (ms *MockStorage) MarkProcessed(_ context.Context, id string) error {
	ms.Lock()
	defer ms.Unlock()
	if ms.markError != nil {
		return ms.markError
	}
	ms.processed = append(ms.processed, id)

	return nil
}

func (ms *MockStorage) MarkFailed(_ context.Context, id, reason string, incrementRetry bool) error {
	ms.Lock()
	defer ms.Unlock()
	if ms.markError != nil {
		return ms.markError
	}
	ms.failed = append(ms.failed, FailedCall{Id: id, Reason: reason, IncrementRetry: incrementRetry})

	return nil
}

func (ms *MockStorage) GetFailed(_ context.Context, limit int) ([]*outbox.Record, error) {
	ms.RLock()
	defer ms.RUnlock()
	if ms.returnError {
		return nil, errors.New("oops")
	}
	if limit < len(ms.failedRecords) {
		return ms.failedRecords[:limit], nil
	}

	return ms.failedRecords, nil
}

func (ms *MockStorage) DeleteProcessed(_ context.Context, _ time.Time) (int64, error) {
	if ms.returnError {
		return 0, errors.New("oops")
	}
	return ms.deletedRowsCount, nil
}

func (ms *MockStorage) GetQueueSize() (uint, error) {
	if ms.returnError {
		return 0, errors.New("oops")
	}
	return ms.mockQueueSize, nil
}

func (ms *MockStorage) GetTotalSize() (uint, error) {
	if ms.returnError {
		return 0, errors.New("oops")
	}
	return ms.mockTotalSize, nil
}

func (ms *MockStorage) GetFailedSize() (uint, error) {
	if ms.returnError {
		return 0, errors.New("oops")
	}
	return ms.mockFailedSize, nil
}

func (ms *MockStorage) Processed() []string {
	ms.RLock()
	defer ms.RUnlock()
	return ms.processed
}

func (ms *MockStorage) Failed() []FailedCall {
	ms.RLock()
	defer ms.RUnlock()
	return ms.failed
}

func (ms *MockStorage) Enqueued() []*outbox.Record {
	ms.RLock()
	defer ms.RUnlock()
	return ms.enqueued
}

func (ms *MockStorage) GetPendingCallCount() int {
	ms.RLock()
	defer ms.RUnlock()
	return ms.getPendingCalls
}

// Mutations reports how many state changes were made.
func (ms *MockStorage) Mutations() int {
	ms.RLock()
	defer ms.RUnlock()
	return len(ms.processed) + len(ms.failed)
}

func (ms *MockStorage) ReturnErrors() {
	ms.returnError = true
}

func (ms *MockStorage) ReturnMarkError(err error) {
	ms.markError = err
}

func (ms *MockStorage) SetFailedRecords(records ...*outbox.Record) {
	ms.failedRecords = records
}

func (ms *MockStorage) SetQueueSize(size uint) {
	ms.mockQueueSize = size
}

func (ms *MockStorage) SetTotalSize(size uint) {
	ms.mockTotalSize = size
}

func (ms *MockStorage) SetFailedSize(size uint) {
	ms.mockFailedSize = size
}

func (ms *MockStorage) SetDeletedRowsCount(c int64) {
	ms.deletedRowsCount = c
}
