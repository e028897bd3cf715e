package outbox

import (
	"errors"
	"testing"
	"time"
)

func TestPriority(t *testing.T) {
	tests := []struct {
		op   OperationType
		want int
	}{
		{OpHeartbeat, 1},
		{OpLogPdf, 2},
		{OpSendEmail, 3},
		{OpLogEmail, 4},
		{OpOfferSync, 5},
		{OpSendGenericEmail, 6},
		{OperationType("FUTURE_OP"), 6},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			if got := Priority(tt.op); got != tt.want {
				t.Errorf("Priority(%s) = %d, want %d", tt.op, got, tt.want)
			}
		})
	}
}

func TestOperationType_Known(t *testing.T) {
	if !OpSendGenericEmail.Known() {
		t.Error("expected SEND_GENERIC_EMAIL to be a known operation type")
	}
	if OperationType("FUTURE_OP").Known() {
		t.Error("expected FUTURE_OP to be unknown")
	}
}

func TestRecord_CanRetry(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		want       bool
	}{
		{name: "first failure with room left", retryCount: 0, maxRetries: 5, want: true},
		{name: "one below the ceiling is terminal", retryCount: 4, maxRetries: 5, want: false},
		{name: "single attempt budget", retryCount: 0, maxRetries: 1, want: false},
		{name: "no budget", retryCount: 0, maxRetries: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{RetryCount: tt.retryCount, MaxRetries: tt.maxRetries}
			if got := r.CanRetry(); got != tt.want {
				t.Errorf("CanRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_Pending(t *testing.T) {
	r := &Record{}
	if !r.Pending() {
		t.Error("expected a record without processed_at to be pending")
	}

	now := time.Now()
	r.ProcessedAt = &now
	if r.Pending() {
		t.Error("expected a processed record not to be pending")
	}
}

func TestRecord_Decode(t *testing.T) {
	r := &Record{Id: "out-1", OperationType: OpSendGenericEmail, PayloadJson: []byte(`{"to":"user@example.com","subject":"Test","text":"Body"}`)}

	var got GenericEmail
	if err := r.Decode(&got); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	exp := GenericEmail{To: "user@example.com", Subject: "Test", Text: "Body"}
	if got != exp {
		t.Errorf("Decode() = %#v, want %#v", got, exp)
	}
}

func TestRecord_DecodeMalformed(t *testing.T) {
	for name, payload := range map[string][]byte{
		"empty":       nil,
		"not json":    []byte(`{to:`),
		"wrong shape": []byte(`["a"]`),
	} {
		t.Run(name, func(t *testing.T) {
			r := &Record{Id: "out-1", OperationType: OpSendGenericEmail, PayloadJson: payload}
			var got GenericEmail
			if err := r.Decode(&got); !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestMillisRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)
	if got := fromMillis(toMillis(now)); !got.Equal(now) {
		t.Errorf("expected %s, got %s", now, got)
	}
}
