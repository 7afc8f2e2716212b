package scheduler

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/customercompass/compass/internal/queue/streams"
	"github.com/customercompass/compass/internal/store"
)

// ScheduleLister exposes the monitors the tick loop has to evaluate.
type ScheduleLister interface {
	ListScheduled(ctx context.Context) ([]store.ScheduledMonitor, error)
}

// TriggerPublisher publishes run triggers onto the queue.
type TriggerPublisher interface {
	PublishTrigger(ctx context.Context, stream string, monitorID int64, opts ...streams.PublishOption) (string, error)
}

// Scheduler periodically walks all scheduled monitors and publishes a run
// trigger for each one whose cron expression has come due. A short-lived
// redis lock per monitor keeps multiple replicas from publishing duplicate
// triggers on the same tick.
type Scheduler struct {
	Lister       ScheduleLister
	Publisher    TriggerPublisher
	Rdb          *redis.Client
	Stream       string
	TickInterval time.Duration
	Logger       *log.Logger

	stop chan struct{}
}

// Start launches the tick loop. Stop() terminates it.
func (s *Scheduler) Start() {
	if s.TickInterval <= 0 {
		s.TickInterval = time.Minute
	}
	s.stop = make(chan struct{})
	ticker := time.NewTicker(s.TickInterval)
	go func() {
		for {
			select {
			case <-s.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(context.Background())
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	if s.stop != nil {
		close(s.stop)
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	monitors, err := s.Lister.ListScheduled(ctx)
	if err != nil {
		s.Logger.Printf("list scheduled monitors: %v", err)
		return
	}
	now := time.Now()
	for _, m := range monitors {
		if !isDue(m.Schedule, m.LastRunAt, now) {
			continue
		}
		if s.Rdb != nil {
			ok, err := s.Rdb.SetNX(ctx, lockKey(m.ID), "1", s.TickInterval).Result()
			if err != nil {
				s.Logger.Printf("schedule lock for monitor %d: %v", m.ID, err)
				continue
			}
			if !ok {
				continue
			}
		}
		if _, err := s.Publisher.PublishTrigger(ctx, s.Stream, m.ID); err != nil {
			s.Logger.Printf("publish trigger for monitor %d: %v", m.ID, err)
			continue
		}
		s.Logger.Printf("monitor %d due (%s), trigger published", m.ID, m.Schedule)
	}
}

func lockKey(monitorID int64) string {
	return "compass:sched:lock:" + strconv.FormatInt(monitorID, 10)
}

// isDue determines whether a monitor with the given cron expression should
// run now, based on its last run time. Supports "@daily", "@hourly" and
// standard 5-field cron expressions; an invalid expression falls back to
// daily.
func isDue(cronSpec string, last *time.Time, now time.Time) bool {
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
