// Package eventlog implements the append-only, strictly sequenced record of
// every mutation, with filtered query, snapshot materialization and
// timestamp-based replay.
package eventlog

import (
	"context"
	"iter"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verbflow/verbflow/internal/domain"
)

// Archiver is an optional durable sink for appended events. Archive failures
// are logged and never fail the in-memory append.
type Archiver interface {
	Append(ctx context.Context, ev domain.LifecycleEvent) error
}

// Log is the in-memory append-only event log. The sequence counter, not the
// timestamp, is the canonical order: two events may share a
// millisecond-resolution timestamp.
type Log struct {
	mu       sync.Mutex
	events   []domain.LifecycleEvent
	byID     map[string]int
	seq      uint64
	clock    func() time.Time
	archiver Archiver
	logger   *log.Logger
}

// Option customizes a Log.
type Option func(*Log)

// WithArchiver attaches a durable write-behind sink.
func WithArchiver(a Archiver) Option {
	return func(l *Log) { l.archiver = a }
}

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithLogger overrides where archive failures are reported.
func WithLogger(logger *log.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates an empty log. The first appended event gets sequence 1.
func New(opts ...Option) *Log {
	l := &Log{
		byID:   make(map[string]int),
		clock:  time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append assigns the next sequence number and stores the event. Arrival
// order at Append, not wall clock, decides relative order.
func (l *Log) Append(ev domain.LifecycleEvent) domain.LifecycleEvent {
	l.mu.Lock()
	l.seq++
	ev.Sequence = l.seq
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.clock()
	}
	l.byID[ev.ID] = len(l.events)
	l.events = append(l.events, ev)
	archiver := l.archiver
	l.mu.Unlock()

	if archiver != nil {
		if err := archiver.Append(context.Background(), ev); err != nil {
			l.logger.Printf("eventlog: archive append for %s seq=%d failed: %v", ev.QualifiedType, ev.Sequence, err)
		}
	}

	return ev
}

// Get returns the stored event by id.
func (l *Log) Get(id string) (domain.LifecycleEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.byID[id]
	if !ok {
		return domain.LifecycleEvent{}, false
	}
	return l.events[idx], true
}

// GetBatch returns events for the requested ids, preserving request order
// and duplicates. Unknown ids are silently skipped.
func (l *Log) GetBatch(ids []string) []domain.LifecycleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.LifecycleEvent, 0, len(ids))
	for _, id := range ids {
		if idx, ok := l.byID[id]; ok {
			out = append(out, l.events[idx])
		}
	}
	return out
}

// Query returns filtered events in sequence order; offset and limit apply
// after filtering.
func (l *Log) Query(f domain.EventFilter) []domain.LifecycleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.LifecycleEvent, 0, len(l.events))
	for _, ev := range l.events {
		if f.Matches(ev) {
			out = append(out, ev)
		}
	}
	return f.Page(out)
}

// Stream produces a lazy, finite, one-shot sequence over the filtered log in
// sequence order. The snapshot is taken when Stream is called; appends after
// that are not visited.
func (l *Log) Stream(f domain.EventFilter) iter.Seq[domain.LifecycleEvent] {
	l.mu.Lock()
	snapshot := make([]domain.LifecycleEvent, len(l.events))
	copy(snapshot, l.events)
	l.mu.Unlock()

	return func(yield func(domain.LifecycleEvent) bool) {
		for _, ev := range snapshot {
			if !f.Matches(ev) {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// History returns every event for one entity in ascending sequence order.
func (l *Log) History(entityType, id string) []domain.LifecycleEvent {
	return l.Query(domain.EventFilter{EntityType: entityType, EntityID: id})
}

// Snapshot materializes the merged after-state of every entity, keyed
// "Type:id". After-states merge field-by-field in sequence order; a field an
// earlier event set survives until a later event overwrites it. A delete
// (nil After over a non-nil Before) drops the key.
func (l *Log) Snapshot() map[string]map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]map[string]any)
	for _, ev := range l.events {
		key := ev.EntityType + ":" + ev.EntityID
		if ev.After == nil {
			if ev.Before != nil {
				delete(out, key)
			}
			continue
		}
		merged := out[key]
		if merged == nil {
			merged = make(map[string]any, len(ev.After))
			out[key] = merged
		}
		for k, v := range ev.After {
			merged[k] = v
		}
	}
	return out
}

// AsOf reconstructs the entity's state at the given instant. Events strictly
// before the timestamp win, latest first; an event at exactly the timestamp
// counts as recorded before the instant was captured, earliest sequence
// first. An unparseable timestamp compares with nothing and yields NotFound.
func (l *Log) AsOf(entityType, id, timestamp string) (map[string]any, error) {
	at, err := parseTimestamp(timestamp)
	if err != nil {
		return nil, &domain.NotFoundError{EntityType: entityType, ID: id}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		latestBefore *domain.LifecycleEvent
		earliestAt   *domain.LifecycleEvent
	)
	for i := range l.events {
		ev := &l.events[i]
		if ev.EntityType != entityType || ev.EntityID != id {
			continue
		}
		switch {
		case ev.Timestamp.Before(at):
			latestBefore = ev // sequence order, so the last hit is the latest
		case ev.Timestamp.Equal(at):
			if earliestAt == nil {
				earliestAt = ev
			}
		}
	}

	chosen := latestBefore
	if chosen == nil {
		chosen = earliestAt
	}
	if chosen == nil || chosen.After == nil {
		return nil, &domain.NotFoundError{EntityType: entityType, ID: id}
	}

	state := make(map[string]any, len(chosen.After))
	for k, v := range chosen.After {
		state[k] = v
	}
	return state, nil
}

// Len returns the number of stored events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Clear empties the log and resets the sequence counter; the next append
// gets sequence 1.
func (l *Log) Clear() {
	l.mu.Lock()
	l.events = nil
	l.byID = make(map[string]int)
	l.seq = 0
	l.mu.Unlock()
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
