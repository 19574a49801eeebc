package domain

import (
	"testing"
	"time"
)

func TestNewEntityInstanceStripsMetaFields(t *testing.T) {
	now := time.Now()
	inst := NewEntityInstance("Contact", "acme", map[string]any{
		"name":      "Alice",
		"id":        "forged",
		"type":      "Deal",
		"context":   "other",
		"createdAt": "1999-01-01",
	}, now)

	if inst.Version != 1 {
		t.Fatalf("new instance version = %d, want 1", inst.Version)
	}
	if inst.Type != "Contact" || inst.Context != "acme" {
		t.Fatalf("meta fields overridden: %+v", inst)
	}
	for _, k := range []string{"id", "type", "context", "createdAt"} {
		if _, ok := inst.Fields[k]; ok {
			t.Errorf("meta field %q leaked into Fields", k)
		}
	}
	if inst.Fields["name"] != "Alice" {
		t.Fatalf("payload field lost: %+v", inst.Fields)
	}
}

func TestWithMergedFieldsDoesNotMutateReceiver(t *testing.T) {
	now := time.Now()
	base := NewEntityInstance("Contact", "acme", map[string]any{"stage": "Lead"}, now)

	next := base.WithMergedFields(map[string]any{"stage": "Qualified"}, now.Add(time.Second))

	if base.Fields["stage"] != "Lead" {
		t.Fatalf("receiver mutated: %v", base.Fields)
	}
	if next.Fields["stage"] != "Qualified" {
		t.Fatalf("merge missed: %v", next.Fields)
	}
	if next.Version != base.Version {
		t.Fatalf("merge must not bump version, got %d", next.Version)
	}
}

func TestMatchesFilter(t *testing.T) {
	inst := EntityInstance{Fields: map[string]any{"stage": "Lead", "owner": "sam"}}

	if !inst.MatchesFilter(nil) {
		t.Fatal("nil filter should match")
	}
	if !inst.MatchesFilter(map[string]any{"stage": "Lead"}) {
		t.Fatal("matching filter rejected")
	}
	if inst.MatchesFilter(map[string]any{"stage": "Won"}) {
		t.Fatal("non-matching filter accepted")
	}
	if inst.MatchesFilter(map[string]any{"missing": "x"}) {
		t.Fatal("filter on absent field accepted")
	}
}
