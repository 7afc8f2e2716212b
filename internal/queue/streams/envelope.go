package streams

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventMonitorRun is the only event type this service publishes: a request to
// run the intelligence pipeline for one monitor.
const EventMonitorRun = "monitor.run"

// Envelope is the canonical message wrapper persisted to Redis Streams.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Attempt    int             `json:"attempt"`
	Data       json.RawMessage `json:"data"`
}

// TriggerPayload is the opaque trigger the pipeline is invoked with.
type TriggerPayload struct {
	MonitorID int64 `json:"monitor_id"`
}

// ValidateBasic ensures mandatory envelope fields are present.
func (e *Envelope) ValidateBasic() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.Attempt < 0 {
		return fmt.Errorf("attempt must be >= 0")
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if len(e.Data) == 0 {
		return fmt.Errorf("data payload is required")
	}
	return nil
}

// Marshal returns the JSON encoding of the envelope.
func (e *Envelope) Marshal() ([]byte, error) {
	if err := e.ValidateBasic(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// UnmarshalEnvelope parses JSON bytes into an Envelope and validates required fields.
func UnmarshalEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if err := env.ValidateBasic(); err != nil {
		return env, err
	}
	return env, nil
}

// Trigger decodes the envelope's payload as a pipeline trigger.
func (e *Envelope) Trigger() (TriggerPayload, error) {
	var p TriggerPayload
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, fmt.Errorf("unmarshal trigger payload: %w", err)
	}
	if p.MonitorID <= 0 {
		return p, fmt.Errorf("monitor_id must be positive")
	}
	return p, nil
}
