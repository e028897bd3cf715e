package test

import (
	"context"
	"sync"

	"planlux/hale-sync/outbox"
)

type Call struct {
	Action  string
	Payload interface{}
}

// MockAPI records the remote calls made to it. Errors can be configured per
// action; a blocking channel lets tests hold a call open.
type MockAPI struct {
	sync.RWMutex
	calls  []Call
	errors map[string]error
	block  chan struct{}
}

func NewMockAPI() *MockAPI {
	return &MockAPI{errors: map[string]error{}}
}

func (m *MockAPI) Heartbeat(_ context.Context, p outbox.HeartbeatPayload) error {
	return m.record("heartbeat", p)
}

func (m *MockAPI) LogPdf(_ context.Context, p outbox.PdfLogPayload) error {
	return m.record("logPdf", p)
}

func (m *MockAPI) SendEmail(_ context.Context, p outbox.SendEmailPayload) error {
	return m.record("sendEmail", p)
}

func (m *MockAPI) LogEmail(_ context.Context, p outbox.EmailLogPayload) error {
	return m.record("logEmail", p)
}

func (m *MockAPI) SyncOffer(_ context.Context, p outbox.OfferSyncPayload) error {
	return m.record("syncOffer", p)
}

func (m *MockAPI) SendGenericEmail(_ context.Context, e outbox.GenericEmail) error {
	return m.record("sendGenericEmail", e)
}

func (m *MockAPI) record(action string, payload interface{}) error {
	m.RLock()
	block := m.block
	m.RUnlock()
	if block != nil {
		<-block
	}

	m.Lock()
	defer m.Unlock()
	m.calls = append(m.calls, Call{Action: action, Payload: payload})

	return m.errors[action]
}

func (m *MockAPI) ErrorFor(action string, err error) {
	m.Lock()
	defer m.Unlock()
	m.errors[action] = err
}

// Block makes every call wait until the returned function is invoked.
func (m *MockAPI) Block() func() {
	m.Lock()
	defer m.Unlock()
	ch := make(chan struct{})
	m.block = ch

	return func() { close(ch) }
}

func (m *MockAPI) Calls() []Call {
	m.RLock()
	defer m.RUnlock()
	return m.calls
}
