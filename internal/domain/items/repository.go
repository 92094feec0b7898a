// Package items manages the catalogs of raw materials and reagents.
package items

import (
	"context"

	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/types"
)

// Repository defines stocked item persistence.
type Repository interface {
	Create(ctx context.Context, item *entity.StockedItem) error

	Get(ctx context.Context, itemID id.ID) (*entity.StockedItem, error)

	// GetByCode looks an item up by its catalog code within one area and kind.
	GetByCode(ctx context.Context, area security.Area, kind entity.ItemKind, code string) (*entity.StockedItem, error)

	// List returns an area's catalog of one kind, ordered by name.
	List(ctx context.Context, area security.Area, kind entity.ItemKind) ([]entity.StockedItem, error)

	// ListLowStock returns the area's items at or below their alert threshold.
	ListLowStock(ctx context.Context, area security.Area) ([]entity.StockedItem, error)

	// Update persists catalog fields (name, code, unit, threshold) with an
	// optimistic version check; quantity changes go through the ledger.
	Update(ctx context.Context, item *entity.StockedItem) error

	Delete(ctx context.Context, itemID id.ID) error
}

// FormulaRegistry is the slice of the formula registry item deletion needs.
type FormulaRegistry interface {
	// MaterialInUse guards material deletion.
	MaterialInUse(ctx context.Context, materialID id.ID) (bool, error)
	// Delete drops a reagent's formula when the reagent itself goes away.
	Delete(ctx context.Context, reagentID id.ID) error
}

// MovementPurger removes an item's ledger history on item deletion.
type MovementPurger interface {
	DeleteByItem(ctx context.Context, itemID id.ID) error
}

// Adjuster books the initial-stock entry for items created with stock on hand.
type Adjuster interface {
	Adjust(ctx context.Context, itemID id.ID, kind entity.MovementKind, qty types.Quantity, observation string, lotCode *string) (*entity.Movement, error)
}
