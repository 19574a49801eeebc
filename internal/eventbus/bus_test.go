package eventbus

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/verbflow/verbflow/internal/domain"
)

func quietBus(opts ...Option) *Bus {
	opts = append(opts, WithLogger(log.New(io.Discard, "", 0)))
	return New(opts...)
}

func event(qualifiedType string) domain.LifecycleEvent {
	return domain.LifecycleEvent{
		QualifiedType: qualifiedType,
		EntityType:    "Contact",
		Verb:          "qualify",
		Timestamp:     time.Now(),
	}
}

func TestEmitDispatchesInSubscriptionOrder(t *testing.T) {
	b := quietBus()
	var order []string

	b.Subscribe("Contact.*", func(domain.LifecycleEvent) error {
		order = append(order, "first")
		return nil
	})
	b.Subscribe("*", func(domain.LifecycleEvent) error {
		order = append(order, "second")
		return nil
	})
	b.Subscribe("Deal.*", func(domain.LifecycleEvent) error {
		order = append(order, "never")
		return nil
	})

	b.Emit(event("Contact.qualified"))

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("dispatch order = %v", order)
	}
}

func TestEmitContinuesPastHandlerError(t *testing.T) {
	b := quietBus()
	reached := false

	b.Subscribe("*", func(domain.LifecycleEvent) error {
		return errors.New("boom")
	})
	b.Subscribe("*", func(domain.LifecycleEvent) error {
		reached = true
		return nil
	})

	b.Emit(event("Contact.qualified"))

	if !reached {
		t.Fatal("handler after failing handler not reached")
	}
}

func TestEmitSyncPropagatesFirstError(t *testing.T) {
	b := quietBus()
	reached := false

	b.Subscribe("*", func(domain.LifecycleEvent) error {
		return errors.New("blocked")
	})
	b.Subscribe("*", func(domain.LifecycleEvent) error {
		reached = true
		return nil
	})

	err := b.EmitSync(event("Contact.qualifying"))
	if err == nil || err.Error() != "blocked" {
		t.Fatalf("EmitSync err = %v, want blocked", err)
	}
	if reached {
		t.Fatal("dispatch continued past the failing handler")
	}
}

func TestDeactivateAndActivate(t *testing.T) {
	b := quietBus()
	count := 0

	sub, err := b.Subscribe("Contact.*", func(domain.LifecycleEvent) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	b.Emit(event("Contact.qualified"))
	sub.Deactivate()
	b.Emit(event("Contact.qualified"))
	sub.Activate()
	b.Emit(event("Contact.qualified"))

	if count != 2 {
		t.Fatalf("handler ran %d times, want 2", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := quietBus()
	count := 0

	sub, _ := b.Subscribe("*", func(domain.LifecycleEvent) error {
		count++
		return nil
	})
	sub.Unsubscribe()
	b.Emit(event("Contact.qualified"))

	if count != 0 {
		t.Fatalf("unsubscribed handler ran %d times", count)
	}
}

func TestQueryAndClear(t *testing.T) {
	b := quietBus()
	b.Subscribe("*", func(domain.LifecycleEvent) error { return nil })

	ev := event("Contact.qualified")
	ev.EntityID = "c1"
	b.Emit(ev)

	other := event("Deal.closed")
	other.EntityType = "Deal"
	other.Verb = "close"
	b.Emit(other)

	got := b.Query(domain.EventFilter{EntityType: "Contact"})
	if len(got) != 1 || got[0].EntityID != "c1" {
		t.Fatalf("Query = %+v", got)
	}

	b.Clear()
	if got := b.Query(domain.EventFilter{}); len(got) != 0 {
		t.Fatalf("buffer not cleared: %d events", len(got))
	}

	// Subscriptions survive a clear.
	delivered := 0
	b.Subscribe("Deal.*", func(domain.LifecycleEvent) error {
		delivered++
		return nil
	})
	b.Emit(other)
	if delivered != 1 {
		t.Fatal("subscription lost after Clear")
	}
}

func TestBufferIsBounded(t *testing.T) {
	b := quietBus(WithBufferSize(3))
	for i := 0; i < 5; i++ {
		b.Emit(event("Contact.qualified"))
	}
	if got := len(b.Query(domain.EventFilter{})); got != 3 {
		t.Fatalf("buffer holds %d events, want 3", got)
	}
}
