// Package store holds the in-memory, tenant-scoped entity store. One store
// instance owns one tenant context; cross-tenant instances are invisible to
// it, not filtered-and-errored.
package store

import (
	"sync"
	"time"

	"github.com/verbflow/verbflow/internal/domain"
)

// Store is a versioned key/value store of entity instances scoped to a
// single tenant context. All operations run to completion under one lock;
// partial mutations are never observable.
type Store struct {
	mu      sync.Mutex
	tenant  string
	types   map[string]*bucket
	order   []string
	clock   func() time.Time
}

// bucket keeps one entity type's instances in insertion order.
type bucket struct {
	order []string
	byID  map[string]domain.EntityInstance
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the wall clock, used by tests and time-travel
// scenarios that need deterministic timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates a store for the given tenant context.
func New(tenant string, opts ...Option) *Store {
	s := &Store{
		tenant: tenant,
		types:  make(map[string]*bucket),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Context returns the tenant context the store is scoped to.
func (s *Store) Context() string {
	return s.tenant
}

// Create stores a new instance at version 1. Meta fields in the payload are
// silently discarded.
func (s *Store) Create(entityType string, data map[string]any) (domain.EntityInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst := domain.NewEntityInstance(entityType, s.tenant, data, s.clock())

	b := s.types[entityType]
	if b == nil {
		b = &bucket{byID: make(map[string]domain.EntityInstance)}
		s.types[entityType] = b
		s.order = append(s.order, entityType)
	}
	b.order = append(b.order, inst.ID)
	b.byID[inst.ID] = inst

	return inst, nil
}

// Get returns the instance for (type, id), or false when it does not exist
// or belongs to another tenant.
func (s *Store) Get(entityType, id string) (domain.EntityInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(entityType, id)
}

// Find returns instances of the type whose fields match every filter entry,
// in insertion order. A nil filter matches all instances of the type.
func (s *Store) Find(entityType string, filter map[string]any) []domain.EntityInstance {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.types[entityType]
	if b == nil {
		return []domain.EntityInstance{}
	}

	out := make([]domain.EntityInstance, 0, len(b.order))
	for _, id := range b.order {
		inst, ok := b.byID[id]
		if !ok || inst.Context != s.tenant {
			continue
		}
		if inst.MatchesFilter(filter) {
			out = append(out, inst)
		}
	}
	return out
}

// All returns every instance in the store in type registration order, then
// insertion order. Used by the query and export layers.
func (s *Store) All() []domain.EntityInstance {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.EntityInstance
	for _, entityType := range s.order {
		b := s.types[entityType]
		for _, id := range b.order {
			if inst, ok := b.byID[id]; ok && inst.Context == s.tenant {
				out = append(out, inst)
			}
		}
	}
	return out
}

// Update merges the payload into the instance's fields and bumps the version
// by exactly 1. Missing or wrong-typed ids fail with NotFound.
func (s *Store) Update(entityType, id string, data map[string]any) (domain.EntityInstance, error) {
	return s.mutate(entityType, id, data)
}

// Perform applies a named domain verb. With a data payload it behaves like
// Update except the verb name is recorded by the surrounding lifecycle; with
// no payload it returns the current instance unchanged and does not bump the
// version.
func (s *Store) Perform(entityType, verb, id string, data map[string]any) (domain.EntityInstance, error) {
	if data == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		inst, ok := s.lookup(entityType, id)
		if !ok {
			return domain.EntityInstance{}, &domain.NotFoundError{EntityType: entityType, ID: id}
		}
		return inst, nil
	}
	return s.mutate(entityType, id, data)
}

// Delete removes the instance. It reports whether anything was removed; the
// version is not touched on the way out.
func (s *Store) Delete(entityType, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(entityType, id); !ok {
		return false, nil
	}

	b := s.types[entityType]
	delete(b.byID, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *Store) mutate(entityType, id string, data map[string]any) (domain.EntityInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.lookup(entityType, id)
	if !ok {
		return domain.EntityInstance{}, &domain.NotFoundError{EntityType: entityType, ID: id}
	}

	next := inst.WithMergedFields(data, s.clock()).WithVersion(inst.Version + 1)
	s.types[entityType].byID[id] = next
	return next, nil
}

func (s *Store) lookup(entityType, id string) (domain.EntityInstance, bool) {
	b := s.types[entityType]
	if b == nil {
		return domain.EntityInstance{}, false
	}
	inst, ok := b.byID[id]
	if !ok || inst.Context != s.tenant {
		return domain.EntityInstance{}, false
	}
	return inst, true
}
