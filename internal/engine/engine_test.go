package engine

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/lifecycle"
	"github.com/verbflow/verbflow/internal/query"
)

func quiet() Option {
	return WithLogger(log.New(io.Discard, "", 0))
}

// fakeClock hands out a controllable, strictly settable time.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestTimeTravelBetweenTwoVersions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := New("acme", nil, WithClock(clock.Now), quiet())

	created, err := e.Create("Contact", map[string]any{"name": "Alice", "stage": "Lead"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("created version = %d, want 1", created.Version)
	}

	clock.Advance(time.Minute)
	between := clock.Now()
	clock.Advance(time.Minute)

	updated, err := e.Update("Contact", created.ID, map[string]any{"stage": "Qualified"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("updated version = %d, want 2", updated.Version)
	}

	state, err := e.AsOf("Contact", created.ID, between.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("asOf: %v", err)
	}
	if state["stage"] != "Lead" {
		t.Fatalf("asOf between versions = %v, want stage Lead", state)
	}
	if state["name"] != "Alice" {
		t.Fatalf("asOf lost untouched field: %v", state)
	}
}

func TestPageWalkOverCreatedContacts(t *testing.T) {
	e := New("acme", nil, quiet())

	ids := map[string]bool{}
	for i := 0; i < 8; i++ {
		inst, err := e.Create("Contact", map[string]any{"n": i})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids[inst.ID] = false
	}

	cursor := ""
	for page := 0; ; page++ {
		res := e.Search(query.Params{EntityType: "Contact", Limit: 3, Cursor: cursor})
		if !res.Paged {
			t.Fatalf("page %d not paged", page)
		}
		for _, inst := range res.Items {
			if seen, known := ids[inst.ID]; !known || seen {
				t.Fatalf("entity %s missing or repeated", inst.ID)
			}
			ids[inst.ID] = true
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	for id, seen := range ids {
		if !seen {
			t.Fatalf("entity %s never visited", id)
		}
	}
}

func TestBlockedBeforeHookLeavesDealUntouched(t *testing.T) {
	reg := domain.NewRegistry()
	reg.Register("Deal", domain.Schema{DeclaredVerbs: []string{"close"}})
	e := New("acme", reg, quiet())

	deal, err := e.Create("Deal", map[string]any{"stage": "Open"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.Subscribe("Deal.closing", func(domain.LifecycleEvent) error {
		return errors.New("blocked")
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	closedFired := false
	e.Subscribe("Deal.closed", func(domain.LifecycleEvent) error {
		closedFired = true
		return nil
	})

	_, err = e.ExecuteVerb(lifecycle.Request{
		EntityType: "Deal",
		Verb:       "close",
		EntityID:   deal.ID,
		Data:       map[string]any{"stage": "Won"},
	})

	var abort *domain.AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("err = %v, want AbortError", err)
	}

	got, _ := e.Get("Deal", deal.ID)
	if got.Fields["stage"] != "Open" {
		t.Fatalf("stage = %v, want Open", got.Fields["stage"])
	}
	if got.Version != deal.Version {
		t.Fatalf("version = %d, want %d", got.Version, deal.Version)
	}
	if closedFired {
		t.Fatal("Deal.closed handler invoked despite abort")
	}
}

func TestDeleteSurface(t *testing.T) {
	e := New("acme", nil, quiet())

	inst, _ := e.Create("Contact", nil)

	removed, err := e.Delete("Contact", inst.ID)
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v)", removed, err)
	}
	removed, err = e.Delete("Contact", inst.ID)
	if err != nil || removed {
		t.Fatalf("repeat Delete = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestHistoryAscendingAndEventSurface(t *testing.T) {
	e := New("acme", nil, quiet())

	inst, _ := e.Create("Contact", map[string]any{"stage": "Lead"})
	e.Update("Contact", inst.ID, map[string]any{"stage": "Qualified"})
	e.Perform("Contact", "archive", inst.ID, map[string]any{"stage": "Archived"})

	history := e.History("Contact", inst.ID)
	if len(history) != 3 {
		t.Fatalf("history = %d events, want 3", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Sequence <= history[i-1].Sequence {
			t.Fatalf("history out of order: %d then %d", history[i-1].Sequence, history[i].Sequence)
		}
	}
	if history[2].Verb != "archive" {
		t.Fatalf("last verb = %q", history[2].Verb)
	}

	// Bus buffer saw all three phases of each verb.
	delivered := e.Events(domain.EventFilter{EntityType: "Contact"})
	if len(delivered) != 9 {
		t.Fatalf("bus delivered %d events, want 9", len(delivered))
	}

	e.ClearEvents()
	if got := e.Events(domain.EventFilter{}); len(got) != 0 {
		t.Fatalf("bus buffer not cleared: %d", len(got))
	}
	// The log is untouched by a bus clear.
	if got := e.History("Contact", inst.ID); len(got) != 3 {
		t.Fatalf("log lost events on bus clear: %d", len(got))
	}
}
