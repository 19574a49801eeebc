package domain

import "time"

// EventFilter represents filtering options for querying lifecycle events.
// Zero-valued predicates are not applied. Limit and Offset are applied by the
// caller after filtering, in sequence order.
type EventFilter struct {
	EntityType string
	Verb       string
	EntityID   string
	Since      *time.Time
	Limit      int
	Offset     int
}

// Matches reports whether the event satisfies every set predicate.
func (f EventFilter) Matches(ev LifecycleEvent) bool {
	if f.EntityType != "" && ev.EntityType != f.EntityType {
		return false
	}
	if f.Verb != "" && ev.Verb != f.Verb {
		return false
	}
	if f.EntityID != "" && ev.EntityID != f.EntityID {
		return false
	}
	if f.Since != nil && ev.Timestamp.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies the filter's offset and limit to an already-filtered slice.
func (f EventFilter) Page(events []LifecycleEvent) []LifecycleEvent {
	if f.Offset > 0 {
		if f.Offset >= len(events) {
			return []LifecycleEvent{}
		}
		events = events[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(events) {
		events = events[:f.Limit]
	}
	return events
}
