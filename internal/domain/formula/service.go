package formula

import (
	"context"
	"time"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/tx"
	"quimstock/internal/core/types"
	"quimstock/pkg/logger"
)

// Service implements the formula registry rules.
type Service struct {
	repo      Repository
	items     ItemStore
	txManager tx.Manager
}

func NewService(repo Repository, items ItemStore, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		items:     items,
		txManager: txManager,
	}
}

// Create registers a formula skeleton: the ingredient set with every ratio at
// the zero sentinel. The reagent keeps HasFormula=false until the ratios are
// set. A reagent may hold only one formula, complete or not; a second Create
// fails with FORMULA_EXISTS either way.
func (s *Service) Create(ctx context.Context, reagentID id.ID, materialIDs []id.ID) (*Formula, error) {
	if len(materialIDs) == 0 {
		return nil, apperror.NewValidation("formula needs at least one material").
			WithDetail("field", "materialIds")
	}

	var created *Formula
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		reagent, err := s.items.Get(ctx, reagentID)
		if err != nil {
			return err
		}
		if reagent.Kind != entity.KindReagent {
			return apperror.NewValidation("formulas can only be assigned to reagents").
				WithDetail("item_id", reagentID.String())
		}

		if _, err := s.repo.GetByReagent(ctx, reagentID); err == nil {
			return apperror.NewFormulaExists(reagentID.String())
		} else if !apperror.IsNotFound(err) {
			return err
		}

		seen := make(map[id.ID]bool, len(materialIDs))
		ingredients := make([]Ingredient, 0, len(materialIDs))
		for i, materialID := range materialIDs {
			if seen[materialID] {
				return apperror.NewValidation("duplicate material in formula").
					WithDetail("material_id", materialID.String()).
					WithDetail("index", i)
			}
			seen[materialID] = true

			material, err := s.items.Get(ctx, materialID)
			if err != nil {
				return err
			}
			if material.Kind != entity.KindMaterial {
				return apperror.NewValidation("formula ingredients must be raw materials").
					WithDetail("item_id", materialID.String()).
					WithDetail("index", i)
			}
			if material.Area != reagent.Area {
				return apperror.NewValidation("formula ingredients must belong to the reagent's area").
					WithDetail("item_id", materialID.String()).
					WithDetail("index", i)
			}
			ingredients = append(ingredients, Ingredient{
				MaterialID: materialID,
				Position:   i,
				Ratio:      types.ZeroRatio(),
			})
		}

		now := time.Now().UTC()
		created = &Formula{
			ID:          id.New(),
			ReagentID:   reagentID,
			Area:        reagent.Area,
			CreatedAt:   now,
			UpdatedAt:   now,
			Ingredients: ingredients,
		}
		for i := range created.Ingredients {
			created.Ingredients[i].FormulaID = created.ID
		}
		return s.repo.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "formula registered",
		"formula_id", created.ID.String(),
		"reagent_id", reagentID.String(),
		"ingredients", len(created.Ingredients),
	)
	return created, nil
}

// SetRatios completes a formula by writing one positive ratio per ingredient,
// in registration order, all lines at once. On success the reagent becomes
// producible (HasFormula=true). A non-positive ratio rejects the whole call
// with INVALID_RATIO naming the offending index; nothing is written then.
func (s *Service) SetRatios(ctx context.Context, reagentID id.ID, ratios []types.Ratio) (*Formula, error) {
	var updated *Formula
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		f, err := s.repo.GetByReagent(ctx, reagentID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNoFormula(reagentID.String())
			}
			return err
		}

		if len(ratios) != len(f.Ingredients) {
			return apperror.NewValidation("ratio count does not match ingredient count").
				WithDetail("expected", len(f.Ingredients)).
				WithDetail("got", len(ratios))
		}
		for i, r := range ratios {
			if r.Sign() <= 0 {
				return apperror.NewInvalidRatio(i)
			}
		}

		if err := s.repo.SetRatios(ctx, f.ID, ratios); err != nil {
			return err
		}
		if err := s.items.SetHasFormula(ctx, reagentID, true); err != nil {
			return err
		}

		for i := range f.Ingredients {
			f.Ingredients[i].Ratio = ratios[i]
		}
		f.UpdatedAt = time.Now().UTC()
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "formula ratios set",
		"formula_id", updated.ID.String(),
		"reagent_id", reagentID.String(),
	)
	return updated, nil
}

// Get loads a reagent's formula, mapping absence to NO_FORMULA.
func (s *Service) Get(ctx context.Context, reagentID id.ID) (*Formula, error) {
	f, err := s.repo.GetByReagent(ctx, reagentID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNoFormula(reagentID.String())
		}
		return nil, err
	}
	return f, nil
}

// Delete removes a reagent's formula and clears HasFormula.
// Absence is not an error so callers can use it as a cleanup step.
func (s *Service) Delete(ctx context.Context, reagentID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		f, err := s.repo.GetByReagent(ctx, reagentID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil
			}
			return err
		}
		if err := s.repo.Delete(ctx, f.ID); err != nil {
			return err
		}
		return s.items.SetHasFormula(ctx, reagentID, false)
	})
}

// DiscardIfIncomplete drops the formula when its ratios were never finished
// and reports whether it did. The production engine calls this before
// consuming anything so an interrupted two-phase creation self-heals.
func (s *Service) DiscardIfIncomplete(ctx context.Context, f *Formula) (bool, error) {
	if !f.Incomplete() {
		return false, nil
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, f.ID); err != nil {
			return err
		}
		return s.items.SetHasFormula(ctx, f.ReagentID, false)
	})
	if err != nil {
		return false, err
	}

	logger.Warn(ctx, "incomplete formula discarded",
		"formula_id", f.ID.String(),
		"reagent_id", f.ReagentID.String(),
	)
	return true, nil
}

// MaterialInUse reports whether any formula references the material.
func (s *Service) MaterialInUse(ctx context.Context, materialID id.ID) (bool, error) {
	return s.repo.MaterialInUse(ctx, materialID)
}
