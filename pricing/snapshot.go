package pricing

import (
	"encoding/json"
	"time"
)

// Snapshot is the locally cached copy of the remote pricing base. The three
// tables are opaque to the sync engine and are stored as received.
type Snapshot struct {
	Version     int64
	LastUpdated string
	Cennik      json.RawMessage
	Dodatki     json.RawMessage
	Standard    json.RawMessage
	FetchedAt   time.Time
}

// Base is the pricing table as served by the remote backend.
type Base struct {
	Version     int64           `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Cennik      json.RawMessage `json:"cennik"`
	Dodatki     json.RawMessage `json:"dodatki"`
	Standard    json.RawMessage `json:"standard"`
}

func (b Base) Snapshot(fetchedAt time.Time) Snapshot {
	return Snapshot{
		Version:     b.Version,
		LastUpdated: b.LastUpdated,
		Cennik:      orEmptyList(b.Cennik),
		Dodatki:     orEmptyList(b.Dodatki),
		Standard:    orEmptyList(b.Standard),
		FetchedAt:   fetchedAt.UTC(),
	}
}

func orEmptyList(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("[]")
	}
	return raw
}
