package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/tenant"
)

const (
	entitiesTable = "entities"

	colVersion   = "version"
	colFields    = "fields"
	colCreatedAt = "created_at"
	colUpdatedAt = "updated_at"
)

// entityArchive implements EntityRepository on Postgres.
type entityArchive struct {
	pool   *pgxpool.Pool
	tenant string
}

// NewEntityArchive creates an entity repository scoped to one tenant context.
func NewEntityArchive(pool *pgxpool.Pool, tenant string) EntityRepository {
	return &entityArchive{pool: pool, tenant: tenant}
}

// Save upserts the latest snapshot of an entity instance.
func (r *entityArchive) Save(ctx context.Context, inst domain.EntityInstance) error {
	if err := tenant.EnforceScope(ctx, r.tenant); err != nil {
		return err
	}
	sqlQuery, err := buildSaveEntitySQL(r.tenant, inst)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, sqlQuery); err != nil {
		return fmt.Errorf("failed to archive entity %s/%s: %w", inst.Type, inst.ID, err)
	}
	return nil
}

// Remove drops an entity's archived snapshot. Removing an absent row is not
// an error.
func (r *entityArchive) Remove(ctx context.Context, entityType, id string) error {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Delete(entitiesTable).
		Where(goqu.Ex{colTenant: r.tenant, colEntityType: entityType, colEntityID: id}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build archive delete: %w", err)
	}
	if _, err := r.pool.Exec(ctx, sqlQuery); err != nil {
		return fmt.Errorf("failed to remove archived entity %s/%s: %w", entityType, id, err)
	}
	return nil
}

// ListByType returns archived snapshots of one entity type in creation order.
func (r *entityArchive) ListByType(ctx context.Context, entityType string) ([]domain.EntityInstance, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(entitiesTable).
		Select(colEntityType, colEntityID, colVersion, colFields, colCreatedAt, colUpdatedAt).
		Where(goqu.Ex{colTenant: r.tenant, colEntityType: entityType}).
		Order(goqu.I(colCreatedAt).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build archive select: %w", err)
	}

	rows, err := r.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived entities: %w", err)
	}
	defer rows.Close()

	var instances []domain.EntityInstance
	for rows.Next() {
		var (
			inst                 domain.EntityInstance
			fields               []byte
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&inst.Type, &inst.ID, &inst.Version, &fields, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived entity: %w", err)
		}
		inst.Context = r.tenant
		inst.CreatedAt = createdAt
		inst.UpdatedAt = updatedAt
		if err := unmarshalFields(fields, &inst.Fields); err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archived entities: %w", err)
	}
	return instances, nil
}

func buildSaveEntitySQL(tenant string, inst domain.EntityInstance) (string, error) {
	payload, err := archiveJSON.Marshal(domain.StripMetaFields(inst.Fields))
	if err != nil {
		return "", fmt.Errorf("failed to marshal fields for %s/%s: %w", inst.Type, inst.ID, err)
	}

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Insert(entitiesTable).
		Rows(goqu.Record{
			colTenant:     tenant,
			colEntityType: inst.Type,
			colEntityID:   inst.ID,
			colVersion:    inst.Version,
			colFields:     string(payload),
			colCreatedAt:  inst.CreatedAt,
			colUpdatedAt:  inst.UpdatedAt,
		}).
		OnConflict(goqu.DoUpdate(
			fmt.Sprintf("%s, %s, %s", colTenant, colEntityType, colEntityID),
			goqu.Record{
				colVersion:   inst.Version,
				colFields:    string(payload),
				colUpdatedAt: inst.UpdatedAt,
			},
		)).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("failed to build archive upsert: %w", err)
	}
	return sqlQuery, nil
}
