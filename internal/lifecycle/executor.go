// Package lifecycle orchestrates the three-phase verb lifecycle: validate,
// emit the before event, mutate the store, emit the after events. It also
// provides the Recorder decorator that turns committed mutations into
// event-log records.
package lifecycle

import (
	"time"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/pkg/validator"
)

// Store is the mutation surface the executor drives. Both the raw entity
// store and the Recorder decorator satisfy it.
type Store interface {
	Create(entityType string, data map[string]any) (domain.EntityInstance, error)
	Get(entityType, id string) (domain.EntityInstance, bool)
	Update(entityType, id string, data map[string]any) (domain.EntityInstance, error)
	Delete(entityType, id string) (bool, error)
	Perform(entityType, verb, id string, data map[string]any) (domain.EntityInstance, error)
}

// Bus is the event channel the lifecycle publishes through. EmitSync is the
// abortable before-phase path.
type Bus interface {
	Emit(ev domain.LifecycleEvent)
	EmitSync(ev domain.LifecycleEvent) error
}

// Request names one verb execution.
type Request struct {
	EntityType string
	Verb       string
	EntityID   string
	Data       map[string]any
}

// verbKind is the resolved dispatch target for a verb name. Resolution is an
// explicit lookup; an unknown verb fails validation instead of risking a
// missing-method fault at call time.
type verbKind int

const (
	verbCreate verbKind = iota
	verbUpdate
	verbDelete
	verbCustom
)

var crudKinds = map[string]verbKind{
	"create": verbCreate,
	"update": verbUpdate,
	"delete": verbDelete,
}

// Executor runs the verb lifecycle state machine:
// validating -> emitting before -> mutating -> emitting after -> done, with
// an aborted terminal state reachable from the first two.
type Executor struct {
	store   Store
	bus     Bus
	schemas domain.SchemaRegistry
	clock   func() time.Time
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithClock overrides the wall clock used to stamp emitted events.
func WithClock(clock func() time.Time) ExecutorOption {
	return func(x *Executor) {
		if clock != nil {
			x.clock = clock
		}
	}
}

// NewExecutor creates an executor over the given store, bus and schema
// collaborator. The registry may be nil, in which case validation is skipped
// for every type.
func NewExecutor(store Store, bus Bus, schemas domain.SchemaRegistry, opts ...ExecutorOption) *Executor {
	x := &Executor{
		store:   store,
		bus:     bus,
		schemas: schemas,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Execute runs one verb through the full lifecycle and returns the mutated
// instance. For delete it returns the last state the instance had. A
// before-phase handler error aborts with no mutation and no after events.
func (x *Executor) Execute(req Request) (domain.EntityInstance, error) {
	kind, err := x.resolveVerb(req.EntityType, req.Verb)
	if err != nil {
		return domain.EntityInstance{}, err
	}
	if err := x.validatePayload(kind, req); err != nil {
		return domain.EntityInstance{}, err
	}

	conj := domain.Conjugate(req.Verb)
	now := x.clock()

	var before map[string]any
	if pre, ok := x.store.Get(req.EntityType, req.EntityID); ok {
		before = pre.FieldsCopy()
	}

	beforeEvent := domain.NewLifecycleEvent(req.EntityType, req.EntityID, req.Verb, conj.Activity, domain.PhaseBefore, now)
	beforeEvent.Data = req.Data
	beforeEvent.Before = before
	if err := x.bus.EmitSync(beforeEvent); err != nil {
		return domain.EntityInstance{}, &domain.AbortError{QualifiedType: beforeEvent.QualifiedType, Err: err}
	}

	result, err := x.mutate(kind, req)
	if err != nil {
		return domain.EntityInstance{}, err
	}

	var after map[string]any
	if kind != verbDelete {
		after = result.FieldsCopy()
	}

	for _, phase := range []struct {
		name  string
		phase domain.Phase
	}{
		{conj.Action, domain.PhaseAction},
		{conj.Event, domain.PhaseAfter},
	} {
		ev := domain.NewLifecycleEvent(req.EntityType, result.ID, req.Verb, phase.name, phase.phase, x.clock())
		ev.Data = req.Data
		ev.Before = before
		ev.After = after
		x.bus.Emit(ev)
	}

	return result, nil
}

// resolveVerb validates the verb against the registered schema and maps it
// to an explicit dispatch target. A missing schema registration is not an
// error; validation is skipped.
func (x *Executor) resolveVerb(entityType, verb string) (verbKind, error) {
	kind, isCRUD := crudKinds[verb]
	if !isCRUD {
		kind = verbCustom
	}

	if x.schemas == nil {
		return kind, nil
	}
	schema, registered := x.schemas.GetSchema(entityType)
	if !registered {
		return kind, nil
	}

	if schema.Disabled(verb) {
		return 0, &domain.DisabledVerbError{EntityType: entityType, Verb: verb}
	}
	if !isCRUD && !schema.Declares(verb) {
		return 0, &domain.UnknownVerbError{EntityType: entityType, Verb: verb}
	}
	return kind, nil
}

// validatePayload checks the request data against the declared fields. A
// create must satisfy required fields; merge-style mutations only need the
// fields they carry to have the right types.
func (x *Executor) validatePayload(kind verbKind, req Request) error {
	if x.schemas == nil || kind == verbDelete {
		return nil
	}
	schema, registered := x.schemas.GetSchema(req.EntityType)
	if !registered {
		return nil
	}

	var res validator.ValidationResult
	if kind == verbCreate {
		res = validator.ValidatePayload(schema, req.Data)
	} else {
		res = validator.ValidatePartial(schema, req.Data)
	}
	if res.IsValid {
		return nil
	}

	details := make([]string, len(res.Errors))
	for i, fieldErr := range res.Errors {
		details[i] = fieldErr.Message
	}
	return &domain.InvalidPayloadError{EntityType: req.EntityType, Details: details}
}

func (x *Executor) mutate(kind verbKind, req Request) (domain.EntityInstance, error) {
	switch kind {
	case verbCreate:
		return x.store.Create(req.EntityType, req.Data)
	case verbUpdate:
		return x.store.Update(req.EntityType, req.EntityID, req.Data)
	case verbDelete:
		pre, ok := x.store.Get(req.EntityType, req.EntityID)
		if !ok {
			return domain.EntityInstance{}, &domain.NotFoundError{EntityType: req.EntityType, ID: req.EntityID}
		}
		if _, err := x.store.Delete(req.EntityType, req.EntityID); err != nil {
			return domain.EntityInstance{}, err
		}
		return pre, nil
	default:
		return x.store.Perform(req.EntityType, req.Verb, req.EntityID, req.Data)
	}
}
