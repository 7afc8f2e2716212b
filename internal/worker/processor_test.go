package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/customercompass/compass/internal/queue/streams"
	"github.com/customercompass/compass/models"
)

type fakeRunner struct {
	outcome models.RunOutcome
	err     error
	ran     []int64
}

func (f *fakeRunner) Run(ctx context.Context, monitorID int64) (models.RunOutcome, error) {
	f.ran = append(f.ran, monitorID)
	return f.outcome, f.err
}

type fakeConsumer struct {
	claimable []streams.Message
	minIdle   time.Duration
	acked     []string
}

func (f *fakeConsumer) Read(ctx context.Context, stream string, opts ...streams.ConsumerOption) ([]streams.Message, error) {
	return nil, nil
}

func (f *fakeConsumer) Ack(ctx context.Context, stream string, ids ...string) error {
	f.acked = append(f.acked, ids...)
	return nil
}

func (f *fakeConsumer) AutoClaim(ctx context.Context, stream string, minIdle time.Duration, start string, count int64) ([]streams.Message, string, error) {
	f.minIdle = minIdle
	msgs := f.claimable
	f.claimable = nil
	return msgs, "0-0", nil
}

func testProcessor(r Runner) *Processor {
	return NewProcessor(log.New(io.Discard, "", 0), nil, r, nil, "monitor.run")
}

func triggerMessage(monitorID int64) streams.Message {
	data, _ := json.Marshal(streams.TriggerPayload{MonitorID: monitorID})
	return streams.Message{
		ID: "1-0",
		Envelope: streams.Envelope{
			EventID:   "evt-1",
			EventType: streams.EventMonitorRun,
			Data:      data,
		},
	}
}

func TestProcessRunsTrigger(t *testing.T) {
	runner := &fakeRunner{outcome: models.RunDone}
	p := testProcessor(runner)

	outcome, err := p.process(context.Background(), triggerMessage(7))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if outcome != models.RunDone {
		t.Fatalf("expected done, got %s", outcome)
	}
	if len(runner.ran) != 1 || runner.ran[0] != 7 {
		t.Fatalf("runner invocations: %v", runner.ran)
	}
}

func TestProcessMalformedTrigger(t *testing.T) {
	runner := &fakeRunner{outcome: models.RunDone}
	p := testProcessor(runner)

	msg := streams.Message{ID: "1-1", Envelope: streams.Envelope{Data: json.RawMessage(`{"monitor_id":0}`)}}
	outcome, err := p.process(context.Background(), msg)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if outcome == models.RunFailed {
		t.Fatal("malformed triggers must not be retried as failures")
	}
	if len(runner.ran) != 0 {
		t.Fatal("runner must not execute a malformed trigger")
	}
}

func TestProcessRunnerFailure(t *testing.T) {
	runner := &fakeRunner{outcome: models.RunFailed, err: fmt.Errorf("summarization: model overloaded")}
	p := testProcessor(runner)

	outcome, err := p.process(context.Background(), triggerMessage(7))
	if outcome != models.RunFailed || err == nil {
		t.Fatalf("expected failed, got %s / %v", outcome, err)
	}
}

func TestHandleAckPolicy(t *testing.T) {
	cases := []struct {
		outcome models.RunOutcome
		err     error
		acked   bool
	}{
		{models.RunDone, nil, true},
		{models.RunSkipped, nil, true},
		{models.RunAlreadyRunning, nil, true},
		{models.RunFailed, fmt.Errorf("summarization: model overloaded"), false},
	}
	for _, tc := range cases {
		cons := &fakeConsumer{}
		p := NewProcessor(log.New(io.Discard, "", 0), cons, &fakeRunner{outcome: tc.outcome, err: tc.err}, nil, "monitor.run")
		p.handle(context.Background(), triggerMessage(7))
		if acked := len(cons.acked) == 1; acked != tc.acked {
			t.Fatalf("%s: acked=%v, want %v", tc.outcome, acked, tc.acked)
		}
	}
}

func TestReclaimWaitsOutRunLock(t *testing.T) {
	runner := &fakeRunner{outcome: models.RunFailed, err: fmt.Errorf("run monitor 7: transient")}
	cons := &fakeConsumer{claimable: []streams.Message{triggerMessage(7)}}
	p := NewProcessor(log.New(io.Discard, "", 0), cons, runner, nil, "monitor.run")

	if err := p.reclaimStale(context.Background()); err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if cons.minIdle < runLockTTL {
		t.Fatalf("min idle %s claims messages whose run lock may still be held", cons.minIdle)
	}
	if len(runner.ran) != 1 || runner.ran[0] != 7 {
		t.Fatalf("reclaimed trigger must execute, ran=%v", runner.ran)
	}
	if len(cons.acked) != 0 {
		t.Fatal("a reclaimed run that fails again must stay pending")
	}
}

func TestProcessLockDegradesWithoutRedis(t *testing.T) {
	p := testProcessor(&fakeRunner{outcome: models.RunDone})
	release, ok, err := p.acquireRunLock(context.Background(), 7)
	if err != nil || !ok {
		t.Fatalf("lock without redis must be a no-op: %v / %v", ok, err)
	}
	release()
}
