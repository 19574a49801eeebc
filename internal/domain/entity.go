package domain

import (
	"time"

	"github.com/google/uuid"
)

// metaFields are set by the store at creation time and may never be
// overridden by a caller-supplied payload.
var metaFields = map[string]struct{}{
	"id":        {},
	"type":      {},
	"context":   {},
	"createdAt": {},
}

// EntityInstance is one versioned, tenant-scoped object. Identity is
// (Type, ID); Context is the tenant scope it belongs to.
type EntityInstance struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Context   string         `json:"context"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Fields    map[string]any `json:"fields"`
}

// NewEntityInstance creates an instance at version 1. Meta fields in the
// payload are discarded, never applied.
func NewEntityInstance(entityType, tenant string, fields map[string]any, now time.Time) EntityInstance {
	return EntityInstance{
		ID:        uuid.NewString(),
		Type:      entityType,
		Context:   tenant,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    StripMetaFields(fields),
	}
}

// WithMergedFields returns a copy with the payload merged into Fields and
// UpdatedAt refreshed. The version is untouched; bumping it is the store's
// decision.
func (e EntityInstance) WithMergedFields(data map[string]any, now time.Time) EntityInstance {
	merged := copyFields(e.Fields)
	for k, v := range StripMetaFields(data) {
		merged[k] = v
	}

	out := e
	out.Fields = merged
	out.UpdatedAt = now
	return out
}

// WithVersion returns a copy at the given version.
func (e EntityInstance) WithVersion(version int64) EntityInstance {
	out := e
	out.Version = version
	out.Fields = copyFields(e.Fields)
	return out
}

// FieldsCopy returns a defensive copy of the field map, suitable for event
// snapshots.
func (e EntityInstance) FieldsCopy() map[string]any {
	return copyFields(e.Fields)
}

// StripMetaFields returns a copy of data without the immutable meta fields.
func StripMetaFields(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if _, reserved := metaFields[k]; reserved {
			continue
		}
		out[k] = v
	}
	return out
}

// copyFields creates a shallow copy of a field map. Values are assumed to be
// JSON scalars/containers owned by the caller.
func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// MatchesFilter reports whether every filter key equals the corresponding
// field value. A nil filter matches everything.
func (e EntityInstance) MatchesFilter(filter map[string]any) bool {
	for k, want := range filter {
		got, ok := e.Fields[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
