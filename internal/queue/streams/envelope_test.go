package streams

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeValidateBasic(t *testing.T) {
	env := Envelope{
		EventID:   "evt-1",
		EventType: EventMonitorRun,
		Data:      json.RawMessage(`{"monitor_id":7}`),
	}
	if err := env.ValidateBasic(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to be filled")
	}

	bad := Envelope{EventType: EventMonitorRun, Data: json.RawMessage(`{}`)}
	if err := bad.ValidateBasic(); err == nil {
		t.Fatal("expected missing event_id error")
	}
	bad = Envelope{EventID: "evt-1", EventType: EventMonitorRun}
	if err := bad.ValidateBasic(); err == nil {
		t.Fatal("expected missing data error")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		EventID:    "evt-2",
		EventType:  EventMonitorRun,
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Attempt:    1,
		Data:       json.RawMessage(`{"monitor_id":12}`),
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalEnvelope(raw)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope: %v", err)
	}
	if got.EventID != env.EventID || got.EventType != env.EventType || got.Attempt != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	trigger, err := got.Trigger()
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if trigger.MonitorID != 12 {
		t.Fatalf("unexpected monitor id: %d", trigger.MonitorID)
	}
}

func TestTriggerRejectsBadPayload(t *testing.T) {
	env := Envelope{Data: json.RawMessage(`{"monitor_id":0}`)}
	if _, err := env.Trigger(); err == nil {
		t.Fatal("expected error for non-positive monitor id")
	}
	env = Envelope{Data: json.RawMessage(`not json`)}
	if _, err := env.Trigger(); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
