package domain

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FieldChange records one field differing between two snapshots.
type FieldChange struct {
	Field string
	From  any
	To    any
}

// ChangeSet is the field-level difference between the before and after
// snapshots of one lifecycle event.
type ChangeSet struct {
	Added   []FieldChange
	Changed []FieldChange
	Removed []FieldChange
}

// Empty reports whether the snapshots were identical.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Changed) == 0 && len(c.Removed) == 0
}

// DiffSnapshots computes the change set between two field snapshots. Keys are
// visited in sorted order so output is deterministic.
func DiffSnapshots(before, after map[string]any) ChangeSet {
	var cs ChangeSet

	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		from, inBefore := before[k]
		to, inAfter := after[k]
		switch {
		case !inBefore:
			cs.Added = append(cs.Added, FieldChange{Field: k, To: to})
		case !inAfter:
			cs.Removed = append(cs.Removed, FieldChange{Field: k, From: from})
		case !reflect.DeepEqual(from, to):
			cs.Changed = append(cs.Changed, FieldChange{Field: k, From: from, To: to})
		}
	}

	return cs
}

// String renders the change set one line per field, +/~/- prefixed.
func (c ChangeSet) String() string {
	var b strings.Builder
	for _, ch := range c.Added {
		fmt.Fprintf(&b, "+ %s: %v\n", ch.Field, ch.To)
	}
	for _, ch := range c.Changed {
		fmt.Fprintf(&b, "~ %s: %v -> %v\n", ch.Field, ch.From, ch.To)
	}
	for _, ch := range c.Removed {
		fmt.Fprintf(&b, "- %s: %v\n", ch.Field, ch.From)
	}
	return b.String()
}
