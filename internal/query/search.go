// Package query builds the read API on top of the entity store: filtered
// search with opaque-cursor pagination, count-only mode, sorting, and
// reverse-relationship enrichment driven by the schema collaborator.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/verbflow/verbflow/internal/domain"
)

// EntitySource is the read surface the query layer consumes. The entity
// store satisfies it.
type EntitySource interface {
	Get(entityType, id string) (domain.EntityInstance, bool)
	Find(entityType string, filter map[string]any) []domain.EntityInstance
	All() []domain.EntityInstance
}

// Params describe one search. Cursor, when set, overrides Offset. A
// non-positive Limit means "no explicit limit".
type Params struct {
	EntityType string
	Filter     map[string]any
	Sort       *domain.Sort
	Limit      int
	Offset     int
	Cursor     string
	CountOnly  bool
}

// Result is the search outcome. Exactly one of three shapes applies:
// count-only (CountOnly set), a flat list (Paged false), or a page envelope
// (Paged true, with Total and possibly NextCursor).
type Result struct {
	Items      []domain.EntityInstance
	Total      int
	NextCursor string
	Count      int
	Paged      bool
	CountOnly  bool
}

// Service implements the query surface.
type Service struct {
	source    EntitySource
	schemas   domain.SchemaRegistry
	relations *relationLoader
}

// NewService creates a query service over the given source and schema
// collaborator. The registry may be nil; enrichment is then a no-op.
func NewService(source EntitySource, schemas domain.SchemaRegistry) *Service {
	return &Service{
		source:    source,
		schemas:   schemas,
		relations: newRelationLoader(source),
	}
}

// Search runs a filtered, sorted, paginated query. A malformed cursor never
// errors; it degrades to offset 0.
func (s *Service) Search(p Params) Result {
	matched := s.match(p.EntityType, p.Filter)
	applySort(matched, p.Sort)

	if p.CountOnly {
		return Result{CountOnly: true, Count: len(matched)}
	}

	offset := p.Offset
	if p.Cursor != "" {
		offset = domain.DecodeCursor(p.Cursor)
	}
	if offset < 0 {
		offset = 0
	}

	total := len(matched)

	// No explicit positive limit, or everything fits on one page: flat list.
	if p.Limit <= 0 {
		if offset > total {
			offset = total
		}
		return Result{Items: matched[offset:]}
	}
	if total <= p.Limit && offset == 0 {
		return Result{Items: matched}
	}

	if offset > total {
		offset = total
	}
	end := offset + p.Limit
	if end > total {
		end = total
	}

	res := Result{Paged: true, Total: total, Items: matched[offset:end]}
	if offset+p.Limit < total {
		res.NextCursor = domain.EncodeCursor(offset + p.Limit)
	}
	return res
}

func (s *Service) match(entityType string, filter map[string]any) []domain.EntityInstance {
	if entityType != "" {
		return s.source.Find(entityType, filter)
	}
	var out []domain.EntityInstance
	for _, inst := range s.source.All() {
		if inst.MatchesFilter(filter) {
			out = append(out, inst)
		}
	}
	return out
}

func applySort(items []domain.EntityInstance, s *domain.Sort) {
	if s == nil {
		return
	}
	desc := s.Direction == domain.SortDirectionDesc
	sort.SliceStable(items, func(i, j int) bool {
		c := compareInstances(items[i], items[j], s)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareInstances(a, b domain.EntityInstance, s *domain.Sort) int {
	switch s.Field {
	case domain.SortFieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case domain.SortFieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case domain.SortFieldID:
		return strings.Compare(a.ID, b.ID)
	case domain.SortFieldVersion:
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	case domain.SortFieldData:
		return compareValues(a.Fields[s.DataKey], b.Fields[s.DataKey])
	}
	return 0
}

// compareValues orders two dynamic field values: numbers numerically,
// everything else by string rendering. Absent values sort first.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		}
		return 1
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// GetWithRelated fetches one entity and attaches reverse relationships.
func (s *Service) GetWithRelated(ctx context.Context, entityType, id string) (domain.EntityInstance, error) {
	inst, ok := s.source.Get(entityType, id)
	if !ok {
		return domain.EntityInstance{}, &domain.NotFoundError{EntityType: entityType, ID: id}
	}
	return s.Enrich(ctx, inst)
}

// Enrich scans every registered type's forward relationships for ones
// targeting the instance's type with a declared back-reference, queries the
// source type where the relation field equals the instance id, and attaches
// matches under the back-reference name. An entity with no matches gets no
// extra field at all.
func (s *Service) Enrich(ctx context.Context, inst domain.EntityInstance) (domain.EntityInstance, error) {
	if s.schemas == nil {
		return inst, nil
	}

	var fields map[string]any
	for _, typeName := range s.schemas.Types() {
		schema, ok := s.schemas.GetSchema(typeName)
		if !ok {
			continue
		}
		for field, rel := range schema.Relationships {
			if rel.TargetType != inst.Type || rel.Backref == "" {
				continue
			}
			matches, err := s.relations.load(ctx, relationKey{SourceType: typeName, Field: field, TargetID: inst.ID})
			if err != nil {
				return domain.EntityInstance{}, fmt.Errorf("loading %s.%s backrefs: %w", typeName, field, err)
			}
			if len(matches) == 0 {
				continue
			}
			if fields == nil {
				fields = inst.FieldsCopy()
			}
			fields[rel.Backref] = matches
		}
	}

	if fields != nil {
		inst.Fields = fields
	}
	return inst, nil
}
