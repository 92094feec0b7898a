// Package formula manages reagent formulas: which raw materials a reagent is
// produced from, and in what ratio per produced unit.
package formula

import (
	"time"

	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/types"
)

// Formula links a reagent to its ingredient list. A reagent has at most one.
//
// Creation is two-phase: first the ingredient set is registered with all
// ratios at the zero sentinel, then the ratios are filled in one shot. A
// formula caught between the phases is incomplete and gets discarded on the
// next production attempt against its reagent.
type Formula struct {
	ID        id.ID         `db:"id" json:"id"`
	ReagentID id.ID         `db:"reagent_id" json:"reagentId"`
	Area      security.Area `db:"area" json:"area"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Ingredients ordered by position, as registered.
	Ingredients []Ingredient `db:"-" json:"ingredients"`
}

// Ingredient is one material line of a formula.
type Ingredient struct {
	FormulaID  id.ID `db:"formula_id" json:"-"`
	MaterialID id.ID `db:"material_id" json:"materialId"`

	// Position preserves registration order; ratios are applied by it.
	Position int `db:"position" json:"position"`

	// Ratio is material units consumed per produced reagent unit.
	// Zero means "not yet set".
	Ratio types.Ratio `db:"ratio" json:"ratio"`
}

// Incomplete reports whether any ratio is still at the zero sentinel.
// A formula with no ingredients at all counts as incomplete too.
func (f *Formula) Incomplete() bool {
	if len(f.Ingredients) == 0 {
		return true
	}
	for _, ing := range f.Ingredients {
		if ing.Ratio.Sign() <= 0 {
			return true
		}
	}
	return false
}

// MaterialIDs returns the ingredient materials in position order.
func (f *Formula) MaterialIDs() []id.ID {
	out := make([]id.ID, len(f.Ingredients))
	for i, ing := range f.Ingredients {
		out[i] = ing.MaterialID
	}
	return out
}
