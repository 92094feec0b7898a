package entity

import (
	"time"

	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/types"
)

// MovementKind defines the direction and origin of a stock change.
type MovementKind string

const (
	// MovementEntry increases stock (manual receipt)
	MovementEntry MovementKind = "entry"
	// MovementExit decreases stock (manual issue)
	MovementExit MovementKind = "exit"
	// MovementProduction marks a change driven by the production engine:
	// an exit on every consumed material and an entry on the produced reagent.
	MovementProduction MovementKind = "production"
)

// Increases reports whether the movement adds to the owning item's stock.
// A production movement adds when it sits on a reagent and subtracts when it
// sits on a material; the item kind disambiguates.
func (k MovementKind) Increases(itemKind ItemKind) bool {
	switch k {
	case MovementEntry:
		return true
	case MovementExit:
		return false
	case MovementProduction:
		return itemKind == KindReagent
	}
	return false
}

// Movement is one immutable ledger record. Movements are append-only:
// they are never updated and only deleted together with their owning item.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	ItemID   id.ID    `db:"item_id" json:"itemId"`
	ItemKind ItemKind `db:"item_kind" json:"itemKind"`

	Kind     MovementKind   `db:"kind" json:"kind"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	Observation string `db:"observation" json:"observation,omitempty"`

	// LotCode is set on exits (operator-annotated) and production entries.
	LotCode *string `db:"lot_code" json:"lotCode,omitempty"`

	// Username of the operator who booked the movement.
	Username string `db:"username" json:"username,omitempty"`

	Area security.Area `db:"area" json:"area"`

	RecordedAt time.Time `db:"recorded_at" json:"recordedAt"`
}

// NewMovement creates a ledger record with a generated ID and timestamp.
func NewMovement(item *StockedItem, kind MovementKind, qty types.Quantity, observation, username string, lotCode *string) Movement {
	return Movement{
		ID:          id.New(),
		ItemID:      item.ID,
		ItemKind:    item.Kind,
		Kind:        kind,
		Quantity:    qty,
		Observation: observation,
		LotCode:     lotCode,
		Username:    username,
		Area:        item.Area,
		RecordedAt:  time.Now().UTC(),
	}
}

// SignedQuantity returns quantity with sign applied by direction.
func (m *Movement) SignedQuantity() types.Quantity {
	if m.Kind.Increases(m.ItemKind) {
		return m.Quantity
	}
	return m.Quantity.Neg()
}
