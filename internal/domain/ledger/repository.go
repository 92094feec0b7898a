// Package ledger provides the append-only stock movement register.
package ledger

import (
	"context"
	"time"

	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
)

// Repository defines operations for the movement register.
type Repository interface {
	// Append inserts one immutable movement record.
	Append(ctx context.Context, m entity.Movement) error

	// ListByItem returns an item's history, newest first.
	ListByItem(ctx context.Context, itemID id.ID, filter Filter) ([]entity.Movement, error)

	// ListByArea returns an area's history across items, newest first.
	ListByArea(ctx context.Context, area security.Area, filter Filter) ([]entity.Movement, error)

	// List returns the combined history of both areas, newest first.
	List(ctx context.Context, filter Filter) ([]entity.Movement, error)

	// LastProductionAt returns the timestamp of the most recent
	// production-kind movement in the area, or nil if none exists.
	// The lot counter's year-reset rule is decided against this record.
	LastProductionAt(ctx context.Context, area security.Area) (*time.Time, error)

	// DeleteByItem removes an item's entire history.
	// Only used when the item itself is being deleted.
	DeleteByItem(ctx context.Context, itemID id.ID) error
}

// ItemStore is the slice of item persistence the ledger needs:
// row-locked reads and quantity writes inside the ambient transaction.
type ItemStore interface {
	GetForUpdate(ctx context.Context, itemID id.ID) (*entity.StockedItem, error)
	UpdateQuantity(ctx context.Context, itemID id.ID, quantity int64) error
}

// Filter narrows and pages history queries.
type Filter struct {
	Kind     *entity.MovementKind
	ItemKind *entity.ItemKind
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
