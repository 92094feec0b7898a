package items

import (
	"context"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/tx"
	"quimstock/internal/core/types"
	"quimstock/pkg/logger"
)

// CreateInput carries the catalog fields for a new item.
type CreateInput struct {
	Name     string         `json:"name"`
	Code     string         `json:"code"`
	Unit     entity.Unit    `json:"unit"`
	LowStock types.Quantity `json:"lowStock"`

	// InitialQuantity, when positive, is booked as an entry movement so the
	// opening balance shows up in the item's history.
	InitialQuantity types.Quantity `json:"initialQuantity"`
}

// UpdateInput carries the editable catalog fields.
type UpdateInput struct {
	Name     string         `json:"name"`
	Code     string         `json:"code"`
	Unit     entity.Unit    `json:"unit"`
	LowStock types.Quantity `json:"lowStock"`
}

// Service implements catalog CRUD with the deletion guards that keep the
// formula registry and the ledger consistent.
type Service struct {
	repo      Repository
	formulas  FormulaRegistry
	movements MovementPurger
	ledger    Adjuster
	txManager tx.Manager
}

func NewService(repo Repository, formulas FormulaRegistry, movements MovementPurger, ledger Adjuster, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		formulas:  formulas,
		movements: movements,
		ledger:    ledger,
		txManager: txManager,
	}
}

// Create registers a new item in the area's catalog of the given kind.
// Codes are unique per area and kind.
func (s *Service) Create(ctx context.Context, area security.Area, kind entity.ItemKind, in CreateInput) (*entity.StockedItem, error) {
	if in.InitialQuantity.IsNegative() {
		return nil, apperror.NewValidation("initial quantity cannot be negative").
			WithDetail("field", "initialQuantity")
	}

	item := entity.NewStockedItem(kind, in.Name, in.Code, in.Unit, in.LowStock, area)
	if err := item.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByCode(ctx, area, kind, in.Code)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if existing != nil {
			return apperror.NewDuplicate(string(kind), "code", in.Code)
		}

		if err := s.repo.Create(ctx, item); err != nil {
			return err
		}
		if in.InitialQuantity.IsPositive() {
			m, err := s.ledger.Adjust(ctx, item.ID, entity.MovementEntry, in.InitialQuantity, "Initial stock", nil)
			if err != nil {
				return err
			}
			item.Quantity = m.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "item created",
		"item_id", item.ID.String(),
		"kind", string(kind),
		"code", item.Code,
		"area", area.String(),
	)
	return item, nil
}

// Get loads an item and checks it is of the expected kind and area.
func (s *Service) Get(ctx context.Context, area security.Area, kind entity.ItemKind, itemID id.ID) (*entity.StockedItem, error) {
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Kind != kind || item.Area != area {
		return nil, apperror.NewNotFound(string(kind), itemID.String())
	}
	return item, nil
}

// List returns an area's catalog of one kind.
func (s *Service) List(ctx context.Context, area security.Area, kind entity.ItemKind) ([]entity.StockedItem, error) {
	return s.repo.List(ctx, area, kind)
}

// LowStock returns the area's items at or below their alert threshold.
func (s *Service) LowStock(ctx context.Context, area security.Area) ([]entity.StockedItem, error) {
	return s.repo.ListLowStock(ctx, area)
}

// Update edits catalog fields. Quantities are out of scope here; only the
// ledger moves stock.
func (s *Service) Update(ctx context.Context, area security.Area, kind entity.ItemKind, itemID id.ID, in UpdateInput) (*entity.StockedItem, error) {
	var updated *entity.StockedItem
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.Get(ctx, area, kind, itemID)
		if err != nil {
			return err
		}

		if in.Code != item.Code {
			existing, err := s.repo.GetByCode(ctx, area, kind, in.Code)
			if err != nil && !apperror.IsNotFound(err) {
				return err
			}
			if existing != nil {
				return apperror.NewDuplicate(string(kind), "code", in.Code)
			}
		}

		item.Name = in.Name
		item.Code = in.Code
		item.Unit = in.Unit
		item.LowStock = in.LowStock
		if err := item.Validate(ctx); err != nil {
			return err
		}

		item.Touch()
		if err := s.repo.Update(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an item together with its ledger history.
//
// A material still referenced by a formula is protected: the caller gets
// MATERIAL_IN_USE and must delete the referencing formulas first. Deleting a
// reagent drops its formula along the way.
func (s *Service) Delete(ctx context.Context, area security.Area, kind entity.ItemKind, itemID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.Get(ctx, area, kind, itemID)
		if err != nil {
			return err
		}

		switch item.Kind {
		case entity.KindMaterial:
			inUse, err := s.formulas.MaterialInUse(ctx, item.ID)
			if err != nil {
				return err
			}
			if inUse {
				return apperror.NewMaterialInUse(item.ID.String())
			}
		case entity.KindReagent:
			if err := s.formulas.Delete(ctx, item.ID); err != nil {
				return err
			}
		}

		if err := s.movements.DeleteByItem(ctx, item.ID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, item.ID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "item deleted", "item_id", itemID.String(), "kind", string(kind))
	return nil
}
