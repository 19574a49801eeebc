package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase identifies which leg of the verb lifecycle an event belongs to.
type Phase string

const (
	// PhaseBefore fires ahead of the mutation, named with the verb's
	// activity form (Contact.qualifying). A handler may abort the verb.
	PhaseBefore Phase = "before"
	// PhaseAction fires after the mutation committed, named with the verb
	// itself (Contact.qualify).
	PhaseAction Phase = "action"
	// PhaseAfter fires last, named with the verb's event form
	// (Contact.qualified).
	PhaseAfter Phase = "after"
)

// LifecycleEvent is one phase-tagged record around a verb execution.
//
// Sequence is assigned by the event log at append time and is the canonical
// order; two events may share a millisecond-resolution timestamp, the
// sequence never ties.
type LifecycleEvent struct {
	ID            string         `json:"id"`
	QualifiedType string         `json:"qualifiedType"`
	EntityType    string         `json:"entityType"`
	EntityID      string         `json:"entityId"`
	Verb          string         `json:"verb"`
	Phase         Phase          `json:"phase"`
	Data          map[string]any `json:"data,omitempty"`
	Before        map[string]any `json:"before,omitempty"`
	After         map[string]any `json:"after,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Sequence      uint64         `json:"sequence"`
}

// NewLifecycleEvent builds an event for the given phase of a verb. The
// qualified type is "<EntityType>.<name>" where name is the conjugated form
// matching the phase.
func NewLifecycleEvent(entityType, entityID, verb, name string, phase Phase, now time.Time) LifecycleEvent {
	return LifecycleEvent{
		ID:            uuid.NewString(),
		QualifiedType: QualifiedType(entityType, name),
		EntityType:    entityType,
		EntityID:      entityID,
		Verb:          verb,
		Phase:         phase,
		Timestamp:     now,
	}
}

// QualifiedType joins an entity type and an event name.
func QualifiedType(entityType, name string) string {
	return entityType + "." + name
}
