// Package entity provides core domain entities.
package entity

import (
	"context"
	"time"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/types"
)

// ItemKind distinguishes the two stocked item variants.
type ItemKind string

const (
	// KindMaterial is a raw input ("materia prima")
	KindMaterial ItemKind = "material"
	// KindReagent is a produced or purchased output ("reactivo")
	KindReagent ItemKind = "reagent"
)

// Unit is the unit of measure for a stocked item.
// Stored as the canonical tag; validated at the boundary.
type Unit string

const (
	UnitGrams       Unit = "g"
	UnitKilograms   Unit = "kg"
	UnitMilliliters Unit = "ml"
	UnitLiters      Unit = "l"
	UnitPiece       Unit = "u"
)

// ParseUnit validates and canonicalizes a unit tag.
func ParseUnit(s string) (Unit, bool) {
	switch Unit(s) {
	case UnitGrams, UnitKilograms, UnitMilliliters, UnitLiters, UnitPiece:
		return Unit(s), true
	}
	return "", false
}

// StockedItem is a raw material or reagent tracked by the ledger.
// Quantity is mutated only through the stock ledger; it never goes negative.
type StockedItem struct {
	ID   id.ID    `db:"id" json:"id"`
	Kind ItemKind `db:"kind" json:"kind"`

	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
	Unit Unit   `db:"unit" json:"unit"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// LowStock is the alert threshold; items at or below it are flagged.
	LowStock types.Quantity `db:"low_stock" json:"lowStock"`

	Area security.Area `db:"area" json:"area"`

	// HasFormula is only ever true for reagents with a completed formula.
	HasFormula bool `db:"has_formula" json:"hasFormula"`

	// Version for optimistic locking (incremented on each update)
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewStockedItem creates an item with zero stock.
func NewStockedItem(kind ItemKind, name, code string, unit Unit, lowStock types.Quantity, area security.Area) *StockedItem {
	now := time.Now().UTC()
	return &StockedItem{
		ID:        id.New(),
		Kind:      kind,
		Name:      name,
		Code:      code,
		Unit:      unit,
		Quantity:  0,
		LowStock:  lowStock,
		Area:      area,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp and increments version.
func (i *StockedItem) Touch() {
	i.UpdatedAt = time.Now().UTC()
	i.Version++
}

// IsLowStock reports whether the item is at or below its alert threshold.
func (i *StockedItem) IsLowStock() bool {
	return i.Quantity <= i.LowStock
}

// Validate checks entity invariants (no database access).
func (i *StockedItem) Validate(ctx context.Context) error {
	if i.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if i.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	if _, ok := ParseUnit(string(i.Unit)); !ok {
		return apperror.NewValidation("invalid unit of measure").
			WithDetail("field", "unit").
			WithDetail("value", string(i.Unit))
	}
	if !i.Area.Valid() {
		return apperror.NewValidation("invalid area").
			WithDetail("field", "area").
			WithDetail("value", string(i.Area))
	}
	if i.Kind != KindMaterial && i.Kind != KindReagent {
		return apperror.NewValidation("invalid item kind").
			WithDetail("field", "kind").
			WithDetail("value", string(i.Kind))
	}
	if i.Quantity.IsNegative() {
		return apperror.NewValidation("quantity cannot be negative").
			WithDetail("field", "quantity")
	}
	if i.LowStock.IsNegative() {
		return apperror.NewValidation("low-stock threshold cannot be negative").
			WithDetail("field", "lowStock")
	}
	return nil
}
