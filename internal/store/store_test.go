package store

import (
	"testing"

	"github.com/verbflow/verbflow/internal/domain"
)

func TestCreateAndGet(t *testing.T) {
	s := New("acme")

	inst, err := s.Create("Contact", map[string]any{"name": "Alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inst.Version != 1 {
		t.Fatalf("created version = %d, want 1", inst.Version)
	}
	if inst.Context != "acme" {
		t.Fatalf("created context = %q", inst.Context)
	}

	got, ok := s.Get("Contact", inst.ID)
	if !ok {
		t.Fatal("Get: instance missing")
	}
	if got.Fields["name"] != "Alice" {
		t.Fatalf("Get fields = %v", got.Fields)
	}

	if _, ok := s.Get("Deal", inst.ID); ok {
		t.Fatal("Get with wrong type should miss")
	}
}

func TestUpdateBumpsVersionByOne(t *testing.T) {
	s := New("acme")
	inst, _ := s.Create("Contact", map[string]any{"stage": "Lead"})

	updated, err := s.Update("Contact", inst.ID, map[string]any{"stage": "Qualified"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != inst.Version+1 {
		t.Fatalf("version = %d, want %d", updated.Version, inst.Version+1)
	}
	if updated.Fields["stage"] != "Qualified" {
		t.Fatalf("fields = %v", updated.Fields)
	}
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	s := New("acme")
	_, err := s.Update("Contact", "nope", map[string]any{"x": 1})
	if !domain.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestUpdateDiscardsMetaFields(t *testing.T) {
	s := New("acme")
	inst, _ := s.Create("Contact", map[string]any{"name": "Alice"})

	updated, err := s.Update("Contact", inst.ID, map[string]any{
		"id":      "forged",
		"context": "other",
		"name":    "Bob",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != inst.ID || updated.Context != "acme" {
		t.Fatalf("meta fields overridden: %+v", updated)
	}
	if _, ok := updated.Fields["id"]; ok {
		t.Fatal("meta field applied to Fields")
	}
}

func TestPerformWithoutDataKeepsVersion(t *testing.T) {
	s := New("acme")
	inst, _ := s.Create("Contact", map[string]any{"stage": "Lead"})

	got, err := s.Perform("Contact", "qualify", inst.ID, nil)
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if got.Version != inst.Version {
		t.Fatalf("data-less perform bumped version to %d", got.Version)
	}
}

func TestPerformWithDataBehavesLikeUpdate(t *testing.T) {
	s := New("acme")
	inst, _ := s.Create("Deal", map[string]any{"stage": "Open"})

	got, err := s.Perform("Deal", "close", inst.ID, map[string]any{"stage": "Won"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if got.Version != inst.Version+1 {
		t.Fatalf("version = %d, want %d", got.Version, inst.Version+1)
	}
	if got.Fields["stage"] != "Won" {
		t.Fatalf("fields = %v", got.Fields)
	}
}

func TestDelete(t *testing.T) {
	s := New("acme")
	inst, _ := s.Create("Contact", nil)

	removed, err := s.Delete("Contact", inst.ID)
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}
	if _, ok := s.Get("Contact", inst.ID); ok {
		t.Fatal("instance survived delete")
	}

	removed, err = s.Delete("Contact", inst.ID)
	if err != nil || removed {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestFindFilters(t *testing.T) {
	s := New("acme")
	s.Create("Contact", map[string]any{"stage": "Lead"})
	s.Create("Contact", map[string]any{"stage": "Qualified"})
	s.Create("Contact", map[string]any{"stage": "Lead"})

	all := s.Find("Contact", nil)
	if len(all) != 3 {
		t.Fatalf("Find(nil) = %d instances, want 3", len(all))
	}

	leads := s.Find("Contact", map[string]any{"stage": "Lead"})
	if len(leads) != 2 {
		t.Fatalf("Find(stage=Lead) = %d instances, want 2", len(leads))
	}

	if got := s.Find("Deal", nil); len(got) != 0 {
		t.Fatalf("Find on unknown type = %d instances", len(got))
	}
}

func TestTenantIsolation(t *testing.T) {
	acme := New("acme")
	other := New("globex")

	inst, _ := acme.Create("Contact", map[string]any{"name": "Alice"})

	if _, ok := other.Get("Contact", inst.ID); ok {
		t.Fatal("cross-tenant instance visible")
	}
	if got := other.Find("Contact", nil); len(got) != 0 {
		t.Fatalf("cross-tenant Find returned %d instances", len(got))
	}
}
