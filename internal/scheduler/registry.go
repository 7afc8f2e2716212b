package scheduler

import "context"

// ScheduleStore persists per-monitor schedules.
type ScheduleStore interface {
	SetSchedule(ctx context.Context, monitorID int64, cronSpec string) error
	ClearSchedule(ctx context.Context, monitorID int64) error
}

// Registry registers and removes recurring schedules for monitors. Both
// operations are idempotent: re-registering overwrites the existing
// schedule and removing an absent one is a no-op.
type Registry struct {
	store ScheduleStore
}

func NewRegistry(s ScheduleStore) *Registry {
	return &Registry{store: s}
}

func (r *Registry) Create(ctx context.Context, monitorID int64, cronSpec string) error {
	return r.store.SetSchedule(ctx, monitorID, cronSpec)
}

func (r *Registry) Delete(ctx context.Context, monitorID int64) error {
	return r.store.ClearSchedule(ctx, monitorID)
}
