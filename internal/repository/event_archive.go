package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // postgres dialect
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/tenant"
)

const (
	eventsTable = "lifecycle_events"

	colEventID       = "event_id"
	colTenant        = "tenant"
	colQualifiedType = "qualified_type"
	colEntityType    = "entity_type"
	colEntityID      = "entity_id"
	colVerb          = "verb"
	colPhase         = "phase"
	colData          = "data"
	colBefore        = "before"
	colAfter         = "after"
	colOccurredAt    = "occurred_at"
	colSeq           = "seq"

	dialectPostgres = "postgres"
)

var archiveJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// eventArchive implements EventRepository on Postgres.
type eventArchive struct {
	pool   *pgxpool.Pool
	tenant string
}

// NewEventArchive creates an event repository scoped to one tenant context.
func NewEventArchive(pool *pgxpool.Pool, tenant string) EventRepository {
	return &eventArchive{pool: pool, tenant: tenant}
}

// Append archives one lifecycle event. The in-memory sequence is not stored;
// the table's own bigserial establishes archive order.
func (r *eventArchive) Append(ctx context.Context, ev domain.LifecycleEvent) error {
	if err := tenant.EnforceScope(ctx, r.tenant); err != nil {
		return err
	}
	sqlQuery, err := buildAppendEventSQL(r.tenant, ev)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, sqlQuery); err != nil {
		return fmt.Errorf("failed to archive event %s: %w", ev.ID, err)
	}
	return nil
}

// List returns archived events matching the filter in archive order.
func (r *eventArchive) List(ctx context.Context, filter domain.EventFilter) ([]domain.LifecycleEvent, error) {
	sqlQuery, err := buildListEventsSQL(r.tenant, filter)
	if err != nil {
		return nil, err
	}
	return r.queryEvents(ctx, sqlQuery)
}

// History returns the archived record of one entity in archive order.
func (r *eventArchive) History(ctx context.Context, entityType, entityID string) ([]domain.LifecycleEvent, error) {
	return r.List(ctx, domain.EventFilter{EntityType: entityType, EntityID: entityID})
}

func (r *eventArchive) queryEvents(ctx context.Context, sqlQuery string) ([]domain.LifecycleEvent, error) {
	rows, err := r.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived events: %w", err)
	}
	defer rows.Close()

	var events []domain.LifecycleEvent
	for rows.Next() {
		var (
			ev                 domain.LifecycleEvent
			verb, phase        string
			data, before, next []byte
			occurredAt         time.Time
			seq                int64
		)
		if err := rows.Scan(&seq, &ev.ID, &ev.QualifiedType, &ev.EntityType, &ev.EntityID, &verb, &phase, &data, &before, &next, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived event: %w", err)
		}
		ev.Verb = verb
		ev.Phase = domain.Phase(phase)
		ev.Timestamp = occurredAt
		ev.Sequence = uint64(seq)
		if err := unmarshalFields(data, &ev.Data); err != nil {
			return nil, err
		}
		if err := unmarshalFields(before, &ev.Before); err != nil {
			return nil, err
		}
		if err := unmarshalFields(next, &ev.After); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archived events: %w", err)
	}
	return events, nil
}

func buildAppendEventSQL(tenant string, ev domain.LifecycleEvent) (string, error) {
	record := goqu.Record{
		colEventID:       ev.ID,
		colTenant:        tenant,
		colQualifiedType: ev.QualifiedType,
		colEntityType:    ev.EntityType,
		colEntityID:      ev.EntityID,
		colVerb:          ev.Verb,
		colOccurredAt:    ev.Timestamp,
	}
	record[colPhase] = string(ev.Phase)

	for col, fields := range map[string]map[string]any{
		colData:   ev.Data,
		colBefore: ev.Before,
		colAfter:  ev.After,
	} {
		if fields == nil {
			record[col] = nil
			continue
		}
		payload, err := archiveJSON.Marshal(fields)
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s for event %s: %w", col, ev.ID, err)
		}
		record[col] = string(payload)
	}

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Insert(eventsTable).
		Rows(record).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("failed to build archive insert: %w", err)
	}
	return sqlQuery, nil
}

func buildListEventsSQL(tenant string, filter domain.EventFilter) (string, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From(eventsTable).
		Select(colSeq, colEventID, colQualifiedType, colEntityType, colEntityID, colVerb, colPhase, colData, colBefore, colAfter, colOccurredAt).
		Where(goqu.Ex{colTenant: tenant}).
		Order(goqu.I(colSeq).Asc())

	if filter.EntityType != "" {
		stmt = stmt.Where(goqu.Ex{colEntityType: filter.EntityType})
	}
	if filter.EntityID != "" {
		stmt = stmt.Where(goqu.Ex{colEntityID: filter.EntityID})
	}
	if filter.Verb != "" {
		stmt = stmt.Where(goqu.Ex{colVerb: filter.Verb})
	}
	if filter.Since != nil {
		stmt = stmt.Where(goqu.C(colOccurredAt).Gte(*filter.Since))
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		stmt = stmt.Offset(uint(filter.Offset))
	}

	sqlQuery, _, err := stmt.ToSQL()
	if err != nil {
		return "", fmt.Errorf("failed to build archive select: %w", err)
	}
	return sqlQuery, nil
}

func unmarshalFields(payload []byte, target *map[string]any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := archiveJSON.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("failed to unmarshal archived fields: %w", err)
	}
	return nil
}
