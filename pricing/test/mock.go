package test

import (
	"context"
	"errors"
	"sync"

	"planlux/hale-sync/pricing"
)

type MockStorage struct {
	sync.RWMutex
	snapshot    *pricing.Snapshot
	saves       int
	returnError bool
}

func NewMockStorage(current *pricing.Snapshot) *MockStorage {
	return &MockStorage{snapshot: current}
}

func (m *MockStorage) GetLocalVersion(_ context.Context) (int64, error) {
	m.RLock()
	defer m.RUnlock()
	if m.returnError {
		return 0, errors.New("oops")
	}
	if m.snapshot == nil {
		return 0, nil
	}
	return m.snapshot.Version, nil
}

func (m *MockStorage) SavePricingSnapshot(_ context.Context, snap pricing.Snapshot) error {
	m.Lock()
	defer m.Unlock()
	m.saves++
	m.snapshot = &snap
	return nil
}

func (m *MockStorage) Snapshot() *pricing.Snapshot {
	m.RLock()
	defer m.RUnlock()
	return m.snapshot
}

func (m *MockStorage) SaveCount() int {
	m.RLock()
	defer m.RUnlock()
	return m.saves
}

func (m *MockStorage) ReturnErrors() {
	m.returnError = true
}

type MockFetcher struct {
	Base  *pricing.Base
	Err   error
	Calls int
}

func (f *MockFetcher) FetchBase(_ context.Context) (*pricing.Base, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Base, nil
}
