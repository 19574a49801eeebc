// Package repository persists lifecycle events and entity snapshots to
// Postgres. The archives are write-behind: the in-memory engine is the
// source of truth and the tables exist for durability and offline tooling.
package repository

import (
	"context"

	"github.com/verbflow/verbflow/internal/domain"
)

// EventRepository stores and reads archived lifecycle events.
type EventRepository interface {
	Append(ctx context.Context, ev domain.LifecycleEvent) error
	List(ctx context.Context, filter domain.EventFilter) ([]domain.LifecycleEvent, error)
	History(ctx context.Context, entityType, entityID string) ([]domain.LifecycleEvent, error)
}

// EntityRepository stores and reads archived entity snapshots.
type EntityRepository interface {
	Save(ctx context.Context, inst domain.EntityInstance) error
	Remove(ctx context.Context, entityType, id string) error
	ListByType(ctx context.Context, entityType string) ([]domain.EntityInstance, error)
}
