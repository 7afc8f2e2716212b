package worker

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/customercompass/compass/internal/queue/streams"
	"github.com/customercompass/compass/models"
)

// runLockTTL bounds how long a crashed worker can hold a monitor's run lock.
const runLockTTL = 30 * time.Minute

// Runner executes a single monitor run end to end.
type Runner interface {
	Run(ctx context.Context, monitorID int64) (models.RunOutcome, error)
}

// StreamConsumer is the slice of the stream client the processor drives.
type StreamConsumer interface {
	Read(ctx context.Context, stream string, opts ...streams.ConsumerOption) ([]streams.Message, error)
	Ack(ctx context.Context, stream string, ids ...string) error
	AutoClaim(ctx context.Context, stream string, minIdle time.Duration, start string, count int64) ([]streams.Message, string, error)
}

// Processor consumes monitor run triggers from the stream and executes them.
// Delivery is at-least-once: triggers are acked after the run finishes with
// any outcome other than failure, and failed runs are left pending so a
// later reclaim can retry them.
type Processor struct {
	logger   *log.Logger
	consumer StreamConsumer
	runner   Runner
	rdb      *redis.Client
	stream   string
}

func NewProcessor(logger *log.Logger, cons StreamConsumer, runner Runner, rdb *redis.Client, stream string) *Processor {
	return &Processor{
		logger:   logger,
		consumer: cons,
		runner:   runner,
		rdb:      rdb,
		stream:   stream,
	}
}

// Start blocks, continuously processing triggers until the context is cancelled.
func (p *Processor) Start(ctx context.Context) error {
	p.logger.Printf("worker starting; consuming stream %s", p.stream)

	for {
		select {
		case <-ctx.Done():
			p.logger.Printf("worker stopping: %v", ctx.Err())
			return nil
		default:
		}

		if err := p.reclaimStale(ctx); err != nil && ctx.Err() == nil {
			p.logger.Printf("warn: reclaim stale messages: %v", err)
		}

		msgs, err := p.consumer.Read(ctx, p.stream, streams.WithBlock(5*time.Second), streams.WithCount(16))
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Printf("error reading stream: %v", err)
			time.Sleep(time.Second)
			continue
		}
		for _, msg := range msgs {
			p.handle(ctx, msg)
		}
	}
}

func (p *Processor) handle(ctx context.Context, msg streams.Message) {
	outcome, err := p.process(ctx, msg)
	if err != nil {
		p.logger.Printf("error handling message %s: %v", msg.ID, err)
	}
	if outcome == models.RunFailed && ctx.Err() == nil {
		// leave pending for redelivery
		return
	}
	if err := p.consumer.Ack(ctx, p.stream, msg.ID); err != nil {
		p.logger.Printf("warn: failed to ack message %s: %v", msg.ID, err)
	}
}

func (p *Processor) process(ctx context.Context, msg streams.Message) (models.RunOutcome, error) {
	trigger, err := msg.Envelope.Trigger()
	if err != nil {
		// malformed trigger; ack it away rather than poison the group
		return models.RunSkipped, fmt.Errorf("decode trigger: %w", err)
	}

	release, ok, err := p.acquireRunLock(ctx, trigger.MonitorID)
	if err != nil {
		return models.RunFailed, fmt.Errorf("acquire run lock for monitor %d: %w", trigger.MonitorID, err)
	}
	if !ok {
		p.logger.Printf("monitor %d already running, skipping trigger %s", trigger.MonitorID, msg.Envelope.EventID)
		return models.RunAlreadyRunning, nil
	}
	defer release()

	outcome, err := p.runner.Run(ctx, trigger.MonitorID)
	if err != nil {
		return outcome, fmt.Errorf("run monitor %d: %w", trigger.MonitorID, err)
	}
	p.logger.Printf("monitor %d run finished: %s", trigger.MonitorID, outcome)
	return outcome, nil
}

// acquireRunLock takes a per-monitor advisory lock so that concurrent
// triggers for the same monitor collapse into a single run. With no redis
// client configured the lock degrades to a no-op.
func (p *Processor) acquireRunLock(ctx context.Context, monitorID int64) (func(), bool, error) {
	if p.rdb == nil {
		return func() {}, true, nil
	}
	key := "compass:run:lock:" + strconv.FormatInt(monitorID, 10)
	ok, err := p.rdb.SetNX(ctx, key, "1", runLockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		if err := p.rdb.Del(context.Background(), key).Err(); err != nil {
			p.logger.Printf("warn: release run lock for monitor %d: %v", monitorID, err)
		}
	}
	return release, true, nil
}

// reclaimStale takes over messages another consumer read but never acked,
// so that triggers survive worker crashes. Only messages idle longer than
// the run lock TTL are claimed: a younger message may still be mid-run on
// its original worker, and claiming it would have this worker ack it on
// the run-lock collision, stealing the redelivery a failed run relies on.
func (p *Processor) reclaimStale(ctx context.Context) error {
	msgs, _, err := p.consumer.AutoClaim(ctx, p.stream, runLockTTL, "0-0", 16)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		p.handle(ctx, msg)
	}
	return nil
}
