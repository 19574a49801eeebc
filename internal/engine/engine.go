// Package engine wires the entity store, event bus, event log, verb executor
// and query service into the single per-tenant surface callers consume.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/eventbus"
	"github.com/verbflow/verbflow/internal/eventlog"
	"github.com/verbflow/verbflow/internal/lifecycle"
	"github.com/verbflow/verbflow/internal/query"
	"github.com/verbflow/verbflow/internal/store"
)

// Engine is one tenant's event-sourcing and verb-lifecycle engine. Its
// store and log are exclusively owned; two engines never share backing
// collections. Tenant isolation comes from constructing one engine per
// context, not from locking.
type Engine struct {
	tenant   string
	store    *store.Store
	bus      *eventbus.Bus
	log      *eventlog.Log
	executor *lifecycle.Executor
	queries  *query.Service
}

type config struct {
	archiver   eventlog.Archiver
	clock      func() time.Time
	logger     *log.Logger
	bufferSize int
}

// Option customizes an Engine.
type Option func(*config)

// WithArchiver attaches a durable sink for appended lifecycle events.
func WithArchiver(a eventlog.Archiver) Option {
	return func(c *config) { c.archiver = a }
}

// WithClock overrides the wall clock across store, log and executor.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger overrides where bus and archive failures are reported.
func WithLogger(logger *log.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEventBufferSize bounds the bus's retained event buffer.
func WithEventBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// New composes an engine for the tenant context. The schema registry is the
// injected collaborator; it may be nil, disabling validation and
// relationship enrichment.
func New(tenant string, schemas domain.SchemaRegistry, opts ...Option) *Engine {
	cfg := config{clock: time.Now, logger: log.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	st := store.New(tenant, store.WithClock(cfg.clock))

	logOpts := []eventlog.Option{eventlog.WithClock(cfg.clock), eventlog.WithLogger(cfg.logger)}
	if cfg.archiver != nil {
		logOpts = append(logOpts, eventlog.WithArchiver(cfg.archiver))
	}
	eventLog := eventlog.New(logOpts...)

	busOpts := []eventbus.Option{eventbus.WithLogger(cfg.logger)}
	if cfg.bufferSize > 0 {
		busOpts = append(busOpts, eventbus.WithBufferSize(cfg.bufferSize))
	}
	bus := eventbus.New(busOpts...)

	recorder := lifecycle.NewRecorder(st, eventLog, lifecycle.WithRecorderClock(cfg.clock))
	executor := lifecycle.NewExecutor(recorder, bus, schemas, lifecycle.WithClock(cfg.clock))

	return &Engine{
		tenant:   tenant,
		store:    st,
		bus:      bus,
		log:      eventLog,
		executor: executor,
		queries:  query.NewService(st, schemas),
	}
}

// Context returns the tenant context the engine serves.
func (e *Engine) Context() string {
	return e.tenant
}

// --- store surface ---

// Create stores a new instance through the create lifecycle.
func (e *Engine) Create(entityType string, data map[string]any) (domain.EntityInstance, error) {
	return e.executor.Execute(lifecycle.Request{EntityType: entityType, Verb: "create", Data: data})
}

// Get returns the instance for (type, id) within the tenant.
func (e *Engine) Get(entityType, id string) (domain.EntityInstance, bool) {
	return e.store.Get(entityType, id)
}

// Find returns matching instances of the type within the tenant.
func (e *Engine) Find(entityType string, filter map[string]any) []domain.EntityInstance {
	return e.store.Find(entityType, filter)
}

// Update merges data into the instance through the update lifecycle.
func (e *Engine) Update(entityType, id string, data map[string]any) (domain.EntityInstance, error) {
	return e.executor.Execute(lifecycle.Request{EntityType: entityType, Verb: "update", EntityID: id, Data: data})
}

// Delete removes the instance through the delete lifecycle. It reports
// whether anything was removed; NotFound surfaces as (false, nil).
func (e *Engine) Delete(entityType, id string) (bool, error) {
	_, err := e.executor.Execute(lifecycle.Request{EntityType: entityType, Verb: "delete", EntityID: id})
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Perform applies a named domain verb through the full lifecycle.
func (e *Engine) Perform(entityType, verb, id string, data map[string]any) (domain.EntityInstance, error) {
	return e.executor.Execute(lifecycle.Request{EntityType: entityType, Verb: verb, EntityID: id, Data: data})
}

// --- verb surface ---

// ExecuteVerb runs one verb request through the lifecycle state machine.
func (e *Engine) ExecuteVerb(req lifecycle.Request) (domain.EntityInstance, error) {
	return e.executor.Execute(req)
}

// --- event surface ---

// Subscribe registers a handler for events matching the pattern.
func (e *Engine) Subscribe(pattern string, handler eventbus.Handler) (*eventbus.Subscription, error) {
	return e.bus.Subscribe(pattern, handler)
}

// Events queries the bus's retained buffer of delivered events.
func (e *Engine) Events(filter domain.EventFilter) []domain.LifecycleEvent {
	return e.bus.Query(filter)
}

// ClearEvents empties the retained bus buffer; subscriptions survive.
func (e *Engine) ClearEvents() {
	e.bus.Clear()
}

// --- time travel surface ---

// AsOf reconstructs an entity's state at the given instant from the log.
func (e *Engine) AsOf(entityType, id, timestamp string) (map[string]any, error) {
	return e.log.AsOf(entityType, id, timestamp)
}

// History returns an entity's log records in ascending sequence order.
func (e *Engine) History(entityType, id string) []domain.LifecycleEvent {
	return e.log.History(entityType, id)
}

// Log exposes the event log for offline tooling (snapshot, stream, export).
func (e *Engine) Log() *eventlog.Log {
	return e.log
}

// --- query surface ---

// Search runs a filtered, sorted, cursor-paginated query.
func (e *Engine) Search(p query.Params) query.Result {
	return e.queries.Search(p)
}

// GetWithRelated fetches one entity with reverse relationships attached.
func (e *Engine) GetWithRelated(ctx context.Context, entityType, id string) (domain.EntityInstance, error) {
	return e.queries.GetWithRelated(ctx, entityType, id)
}
