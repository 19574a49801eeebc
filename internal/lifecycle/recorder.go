package lifecycle

import (
	"time"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/eventlog"
)

// Recorder decorates a Store so every committed mutation is appended to the
// event log with before/after snapshots. It is composed once at engine
// construction; it never rewrites another object's methods, so two engines
// can never silently steal each other's event capture.
type Recorder struct {
	next  Store
	log   *eventlog.Log
	clock func() time.Time
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderClock overrides the wall clock used to stamp log records.
func WithRecorderClock(clock func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRecorder wraps a store with event capture into the given log.
func NewRecorder(next Store, log *eventlog.Log, opts ...RecorderOption) *Recorder {
	r := &Recorder{next: next, log: log, clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores a new instance and records a created event.
func (r *Recorder) Create(entityType string, data map[string]any) (domain.EntityInstance, error) {
	inst, err := r.next.Create(entityType, data)
	if err != nil {
		return domain.EntityInstance{}, err
	}
	r.record("create", inst.Type, inst.ID, data, nil, inst.FieldsCopy())
	return inst, nil
}

// Get passes through; reads are not recorded.
func (r *Recorder) Get(entityType, id string) (domain.EntityInstance, bool) {
	return r.next.Get(entityType, id)
}

// Update mutates and records an updated event with both snapshots.
func (r *Recorder) Update(entityType, id string, data map[string]any) (domain.EntityInstance, error) {
	before := r.snapshot(entityType, id)
	inst, err := r.next.Update(entityType, id, data)
	if err != nil {
		return domain.EntityInstance{}, err
	}
	r.record("update", entityType, id, data, before, inst.FieldsCopy())
	return inst, nil
}

// Delete removes and, when something was removed, records a deleted event
// whose after-state is nil.
func (r *Recorder) Delete(entityType, id string) (bool, error) {
	before := r.snapshot(entityType, id)
	removed, err := r.next.Delete(entityType, id)
	if err != nil || !removed {
		return removed, err
	}
	r.record("delete", entityType, id, nil, before, nil)
	return true, nil
}

// Perform applies a named verb and records it under the verb's event form
// rather than "update".
func (r *Recorder) Perform(entityType, verb, id string, data map[string]any) (domain.EntityInstance, error) {
	before := r.snapshot(entityType, id)
	inst, err := r.next.Perform(entityType, verb, id, data)
	if err != nil {
		return domain.EntityInstance{}, err
	}
	r.record(verb, entityType, id, data, before, inst.FieldsCopy())
	return inst, nil
}

func (r *Recorder) snapshot(entityType, id string) map[string]any {
	if pre, ok := r.next.Get(entityType, id); ok {
		return pre.FieldsCopy()
	}
	return nil
}

func (r *Recorder) record(verb, entityType, id string, data, before, after map[string]any) {
	conj := domain.Conjugate(verb)
	ev := domain.NewLifecycleEvent(entityType, id, verb, conj.Event, domain.PhaseAfter, r.clock())
	if data != nil {
		ev.Data = domain.StripMetaFields(data)
	}
	ev.Before = before
	ev.After = after
	r.log.Append(ev)
}
