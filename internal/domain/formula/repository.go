package formula

import (
	"context"

	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/types"
)

// Repository defines formula persistence operations.
type Repository interface {
	// Create inserts the formula together with its ingredient lines.
	Create(ctx context.Context, f *Formula) error

	// GetByReagent loads a reagent's formula with ingredients in position
	// order. Returns a NOT_FOUND error when the reagent has none.
	GetByReagent(ctx context.Context, reagentID id.ID) (*Formula, error)

	// SetRatios writes ratios by ingredient position, all lines at once.
	SetRatios(ctx context.Context, formulaID id.ID, ratios []types.Ratio) error

	// Delete removes the formula and its ingredient lines.
	Delete(ctx context.Context, formulaID id.ID) error

	// MaterialInUse reports whether any formula references the material.
	MaterialInUse(ctx context.Context, materialID id.ID) (bool, error)
}

// ItemStore is the slice of item persistence the registry needs.
type ItemStore interface {
	Get(ctx context.Context, itemID id.ID) (*entity.StockedItem, error)
	SetHasFormula(ctx context.Context, reagentID id.ID, has bool) error
}
