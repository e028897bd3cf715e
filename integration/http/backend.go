//go:build integration
// +build integration

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Backend imitates the spreadsheet-backed remote service plus the
// connectivity probe endpoint.
type Backend struct {
	sync.RWMutex
	actions     []string
	payloads    map[string][]json.RawMessage
	failing     map[string]bool
	online      bool
	baseVersion int64
}

func NewBackend() *Backend {
	b := &Backend{}
	b.Reset()
	return b
}

func (b *Backend) Reset() {
	b.Lock()
	defer b.Unlock()
	b.actions = []string{}
	b.payloads = map[string][]json.RawMessage{}
	b.failing = map[string]bool{}
	b.online = true
	b.baseVersion = 0
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.RLock()
	online := b.online
	b.RUnlock()

	if r.Method == http.MethodGet && r.URL.Path == "/generate_204" {
		if online {
			w.WriteHeader(http.StatusNoContent)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		return
	}

	var req struct {
		Action  string          `json:"action"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b.Lock()
	b.actions = append(b.actions, req.Action)
	b.payloads[req.Action] = append(b.payloads[req.Action], req.Payload)
	failing := b.failing[req.Action]
	version := b.baseVersion
	b.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case failing:
		w.WriteHeader(http.StatusInternalServerError)
	case req.Action == "getBase":
		fmt.Fprintf(w, `{"ok":true,"version":%d,"lastUpdated":"2026-03-01T10:00:00Z","cennik":[{"wariant":"T18","cena":420}],"dodatki":[],"standard":[]}`, version)
	default:
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
}

func (b *Backend) Fail(action string) {
	b.Lock()
	defer b.Unlock()
	b.failing[action] = true
}

func (b *Backend) SetOnline(online bool) {
	b.Lock()
	defer b.Unlock()
	b.online = online
}

func (b *Backend) SetBaseVersion(v int64) {
	b.Lock()
	defer b.Unlock()
	b.baseVersion = v
}

func (b *Backend) Actions() []string {
	b.RLock()
	defer b.RUnlock()
	return append([]string{}, b.actions...)
}

func (b *Backend) Payloads(action string) []json.RawMessage {
	b.RLock()
	defer b.RUnlock()
	return b.payloads[action]
}
