// Package eventbus implements the in-memory pattern-matched publish/subscribe
// channel for lifecycle events, plus a bounded query surface over events it
// has delivered.
package eventbus

import (
	"log"
	"sync"

	"github.com/verbflow/verbflow/internal/domain"
)

// Handler receives a delivered event. Returning an error from a handler on
// the synchronous before-phase path aborts the verb; on the asynchronous
// path errors are logged and dispatch continues.
type Handler func(domain.LifecycleEvent) error

const defaultBufferSize = 1000

// Bus is the in-memory event channel. Dispatch happens in subscription
// order.
type Bus struct {
	mu      sync.Mutex
	subs    []*Subscription
	buffer  []domain.LifecycleEvent
	maxSize int
	logger  *log.Logger
}

// Subscription is one registered pattern/handler pair. It starts active.
type Subscription struct {
	bus     *Bus
	pattern pattern
	raw     string
	handler Handler
	active  bool
}

// Option customizes a Bus.
type Option func(*Bus)

// WithBufferSize bounds the retained event buffer; the oldest events are
// dropped once it fills.
func WithBufferSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.maxSize = n
		}
	}
}

// WithLogger overrides where dropped handler errors are reported.
func WithLogger(logger *log.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates an event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		maxSize: defaultBufferSize,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for every event whose qualified type matches
// the pattern. The returned subscription can be deactivated, reactivated,
// and unsubscribed.
func (b *Bus) Subscribe(rawPattern string, handler Handler) (*Subscription, error) {
	p, err := compilePattern(rawPattern)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{bus: b, pattern: p, raw: rawPattern, handler: handler, active: true}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub, nil
}

// Pattern returns the raw pattern the subscription was registered with.
func (s *Subscription) Pattern() string {
	return s.raw
}

// Deactivate stops delivery without removing the subscription.
func (s *Subscription) Deactivate() {
	s.bus.mu.Lock()
	s.active = false
	s.bus.mu.Unlock()
}

// Activate resumes delivery.
func (s *Subscription) Activate() {
	s.bus.mu.Lock()
	s.active = true
	s.bus.mu.Unlock()
}

// Unsubscribe removes the subscription from the bus.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	for i, sub := range s.bus.subs {
		if sub == s {
			s.bus.subs = append(s.bus.subs[:i], s.bus.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to every matching active subscription in
// subscription order. A handler error does not stop dispatch to the
// remaining handlers; it is logged and dropped.
func (b *Bus) Emit(ev domain.LifecycleEvent) {
	for _, sub := range b.retain(ev) {
		if err := sub.handler(ev); err != nil {
			b.logger.Printf("eventbus: handler for %q failed on %s: %v", sub.raw, ev.QualifiedType, err)
		}
	}
}

// EmitSync delivers the event like Emit but stops at the first handler error
// and returns it. The verb executor drives the before phase through this
// path so a handler can abort the mutation.
func (b *Bus) EmitSync(ev domain.LifecycleEvent) error {
	for _, sub := range b.retain(ev) {
		if err := sub.handler(ev); err != nil {
			return err
		}
	}
	return nil
}

// retain records the event in the buffer and snapshots the matching active
// subscriptions. Handlers run outside the lock so they may subscribe or emit
// reentrantly.
func (b *Bus) retain(ev domain.LifecycleEvent) []*Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer = append(b.buffer, ev)
	if len(b.buffer) > b.maxSize {
		b.buffer = b.buffer[len(b.buffer)-b.maxSize:]
	}

	matched := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.active && sub.pattern.matches(ev.QualifiedType) {
			matched = append(matched, sub)
		}
	}
	return matched
}

// Query returns retained events matching the filter, oldest first.
func (b *Bus) Query(f domain.EventFilter) []domain.LifecycleEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.LifecycleEvent, 0, len(b.buffer))
	for _, ev := range b.buffer {
		if f.Matches(ev) {
			out = append(out, ev)
		}
	}
	return f.Page(out)
}

// Clear empties the retained buffer. Subscriptions survive.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.buffer = nil
	b.mu.Unlock()
}
