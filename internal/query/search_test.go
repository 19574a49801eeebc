package query

import (
	"context"
	"testing"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/store"
)

func seedContacts(t *testing.T, s *store.Store, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		inst, err := s.Create("Contact", map[string]any{"n": i})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids = append(ids, inst.ID)
	}
	return ids
}

func TestSearchFlatWhenNoLimit(t *testing.T) {
	s := store.New("acme")
	seedContacts(t, s, 4)
	svc := NewService(s, nil)

	res := svc.Search(Params{EntityType: "Contact"})
	if res.Paged || res.CountOnly {
		t.Fatalf("result shape = %+v, want flat", res)
	}
	if len(res.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(res.Items))
	}
}

func TestSearchFlatWhenAllFitWithinLimit(t *testing.T) {
	s := store.New("acme")
	seedContacts(t, s, 3)
	svc := NewService(s, nil)

	res := svc.Search(Params{EntityType: "Contact", Limit: 10})
	if res.Paged {
		t.Fatalf("result paged with %d items under limit 10", len(res.Items))
	}
	if len(res.Items) != 3 {
		t.Fatalf("items = %d", len(res.Items))
	}
}

func TestSearchPageWalkVisitsEveryEntityOnce(t *testing.T) {
	s := store.New("acme")
	ids := seedContacts(t, s, 8)
	svc := NewService(s, nil)

	seen := map[string]int{}
	cursor := ""
	pages := 0
	for {
		res := svc.Search(Params{EntityType: "Contact", Limit: 3, Cursor: cursor})
		if !res.Paged {
			t.Fatalf("page %d not paged: %+v", pages, res)
		}
		if res.Total != len(ids) {
			t.Fatalf("total = %d, want %d", res.Total, len(ids))
		}
		for _, inst := range res.Items {
			seen[inst.ID]++
		}
		pages++
		if res.NextCursor == "" {
			if len(res.Items) != 2 {
				t.Fatalf("final page has %d items, want 2", len(res.Items))
			}
			break
		}
		cursor = res.NextCursor
	}

	if pages != 3 {
		t.Fatalf("walked %d pages, want 3", pages)
	}
	if len(seen) != len(ids) {
		t.Fatalf("visited %d distinct entities, want %d", len(seen), len(ids))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("entity %s visited %d times", id, count)
		}
	}
}

func TestSearchMalformedCursorResetsToStart(t *testing.T) {
	s := store.New("acme")
	seedContacts(t, s, 5)
	svc := NewService(s, nil)

	res := svc.Search(Params{EntityType: "Contact", Limit: 2, Cursor: "!!not-a-cursor!!"})
	if !res.Paged || len(res.Items) != 2 {
		t.Fatalf("result = %+v", res)
	}
	first := svc.Search(Params{EntityType: "Contact", Limit: 2})
	if res.Items[0].ID != first.Items[0].ID {
		t.Fatal("malformed cursor did not reset to offset 0")
	}
}

func TestSearchCountOnly(t *testing.T) {
	s := store.New("acme")
	seedContacts(t, s, 6)
	svc := NewService(s, nil)

	res := svc.Search(Params{EntityType: "Contact", CountOnly: true, Limit: 2})
	if !res.CountOnly {
		t.Fatalf("result = %+v, want count-only", res)
	}
	if res.Count != 6 {
		t.Fatalf("count = %d, want 6 (before paging)", res.Count)
	}
	if len(res.Items) != 0 {
		t.Fatalf("count-only returned %d items", len(res.Items))
	}
}

func TestSearchFilterAndSort(t *testing.T) {
	s := store.New("acme")
	s.Create("Contact", map[string]any{"stage": "Lead", "score": 30})
	s.Create("Contact", map[string]any{"stage": "Lead", "score": 10})
	s.Create("Contact", map[string]any{"stage": "Won", "score": 20})
	svc := NewService(s, nil)

	res := svc.Search(Params{
		EntityType: "Contact",
		Filter:     map[string]any{"stage": "Lead"},
		Sort:       &domain.Sort{Field: domain.SortFieldData, DataKey: "score", Direction: domain.SortDirectionDesc},
	})
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(res.Items))
	}
	if res.Items[0].Fields["score"] != 30 || res.Items[1].Fields["score"] != 10 {
		t.Fatalf("sort order = %v, %v", res.Items[0].Fields["score"], res.Items[1].Fields["score"])
	}
}

func TestSearchAcrossTypes(t *testing.T) {
	s := store.New("acme")
	s.Create("Contact", map[string]any{"stage": "Lead"})
	s.Create("Deal", map[string]any{"stage": "Lead"})
	s.Create("Deal", map[string]any{"stage": "Won"})
	svc := NewService(s, nil)

	res := svc.Search(Params{Filter: map[string]any{"stage": "Lead"}})
	if len(res.Items) != 2 {
		t.Fatalf("cross-type search = %d items, want 2", len(res.Items))
	}
}

func TestEnrichAttachesBackrefs(t *testing.T) {
	reg := domain.NewRegistry()
	reg.Register("Contact", domain.Schema{})
	reg.Register("Deal", domain.Schema{
		Relationships: map[string]domain.Relationship{
			"contactId": {TargetType: "Contact", Backref: "deals"},
		},
	})

	s := store.New("acme")
	alice, _ := s.Create("Contact", map[string]any{"name": "Alice"})
	bob, _ := s.Create("Contact", map[string]any{"name": "Bob"})
	s.Create("Deal", map[string]any{"contactId": alice.ID, "stage": "Open"})
	s.Create("Deal", map[string]any{"contactId": alice.ID, "stage": "Won"})

	svc := NewService(s, reg)

	enriched, err := svc.GetWithRelated(context.Background(), "Contact", alice.ID)
	if err != nil {
		t.Fatalf("GetWithRelated: %v", err)
	}
	deals, ok := enriched.Fields["deals"].([]domain.EntityInstance)
	if !ok {
		t.Fatalf("deals field = %T", enriched.Fields["deals"])
	}
	if len(deals) != 2 {
		t.Fatalf("attached %d deals, want 2", len(deals))
	}

	// No matches: the field must be absent, not an empty slice.
	lonely, err := svc.GetWithRelated(context.Background(), "Contact", bob.ID)
	if err != nil {
		t.Fatalf("GetWithRelated: %v", err)
	}
	if _, present := lonely.Fields["deals"]; present {
		t.Fatalf("entity with no matches received a backref field: %v", lonely.Fields)
	}
}

func TestEnrichWithoutBackrefNameAttachesNothing(t *testing.T) {
	reg := domain.NewRegistry()
	reg.Register("Deal", domain.Schema{
		Relationships: map[string]domain.Relationship{
			"contactId": {TargetType: "Contact"}, // no backref declared
		},
	})

	s := store.New("acme")
	alice, _ := s.Create("Contact", map[string]any{"name": "Alice"})
	s.Create("Deal", map[string]any{"contactId": alice.ID})

	svc := NewService(s, reg)
	enriched, err := svc.GetWithRelated(context.Background(), "Contact", alice.ID)
	if err != nil {
		t.Fatalf("GetWithRelated: %v", err)
	}
	if len(enriched.Fields) != 1 {
		t.Fatalf("fields = %v, want only name", enriched.Fields)
	}
}
