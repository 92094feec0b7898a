// Package production runs formula-driven production: it consumes a reagent's
// ingredient materials per their ratios and books the produced quantity under
// a freshly issued lot code, all in one serializable unit of work.
package production

import (
	"context"
	"fmt"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/tx"
	"quimstock/internal/core/types"
	"quimstock/internal/domain/formula"
	"quimstock/pkg/logger"
)

// ItemStore is the slice of item persistence the engine needs.
type ItemStore interface {
	Get(ctx context.Context, itemID id.ID) (*entity.StockedItem, error)
	GetForUpdate(ctx context.Context, itemID id.ID) (*entity.StockedItem, error)
}

// FormulaRegistry resolves and self-heals formulas.
type FormulaRegistry interface {
	Get(ctx context.Context, reagentID id.ID) (*formula.Formula, error)
	DiscardIfIncomplete(ctx context.Context, f *formula.Formula) (bool, error)
}

// Ledger books the stock movements the run produces.
type Ledger interface {
	Adjust(ctx context.Context, itemID id.ID, kind entity.MovementKind, qty types.Quantity, observation string, lotCode *string) (*entity.Movement, error)
}

// LotIssuer advances the area counter and formats the batch code.
type LotIssuer interface {
	NextCode(ctx context.Context, area security.Area, analysisNumber int) (string, error)
}

// TxManager is the transactional surface the engine needs: serializable
// commits for Produce, read-only snapshots for Consult.
type TxManager interface {
	tx.SerializableManager
	tx.ReadOnlyManager
}

// Request describes one production run.
type Request struct {
	ReagentID      id.ID          `json:"reagentId"`
	Quantity       types.Quantity `json:"quantity"`
	AnalysisNumber int            `json:"analysisNumber"`

	// Observation annotates the produced entry; material exits always get
	// the generated text naming the reagent.
	Observation string `json:"observation"`
}

// Result reports what a committed run changed.
type Result struct {
	LotCode  string            `json:"lotCode"`
	Produced entity.Movement   `json:"produced"`
	Consumed []entity.Movement `json:"consumed"`
}

// Shortage is one material that blocks a run.
type Shortage struct {
	MaterialID id.ID          `json:"materialId"`
	Name       string         `json:"name"`
	Required   types.Quantity `json:"required"`
	Available  types.Quantity `json:"available"`
}

// Feasibility is the answer to a read-only production consult.
type Feasibility struct {
	Feasible  bool       `json:"feasible"`
	Shortages []Shortage `json:"shortages,omitempty"`
}

// Engine coordinates a production run across the registry, the lot counter
// and the ledger.
type Engine struct {
	items     ItemStore
	formulas  FormulaRegistry
	ledger    Ledger
	lots      LotIssuer
	txManager TxManager
}

func NewEngine(items ItemStore, formulas FormulaRegistry, ledger Ledger, lots LotIssuer, txManager TxManager) *Engine {
	return &Engine{
		items:     items,
		formulas:  formulas,
		ledger:    ledger,
		lots:      lots,
		txManager: txManager,
	}
}

// Produce executes one run. Either every ingredient deduction, the counter
// advance and the produced entry commit together, or nothing changes.
//
// Failure modes, in check order: NO_FORMULA when the reagent has none;
// FORMULA_INCOMPLETE when a half-created formula is found (it is discarded);
// INSUFFICIENT_STOCK naming the first short material. A serialization loss
// against a concurrent run surfaces as PRODUCTION_ABORTED and is safe to
// retry.
func (e *Engine) Produce(ctx context.Context, req Request) (*Result, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", req.Quantity.String())
	}
	if req.AnalysisNumber <= 0 {
		return nil, apperror.NewValidation("analysis number must be positive").
			WithDetail("field", "analysisNumber").
			WithDetail("value", req.AnalysisNumber)
	}

	var result Result
	err := e.txManager.Serializable(ctx, func(ctx context.Context) error {
		reagent, err := e.items.GetForUpdate(ctx, req.ReagentID)
		if err != nil {
			return err
		}
		if reagent.Kind != entity.KindReagent {
			return apperror.NewValidation("only reagents can be produced").
				WithDetail("item_id", req.ReagentID.String())
		}

		f, err := e.formulas.Get(ctx, req.ReagentID)
		if err != nil {
			return err
		}
		discarded, err := e.formulas.DiscardIfIncomplete(ctx, f)
		if err != nil {
			return err
		}
		if discarded {
			return apperror.NewFormulaIncomplete(req.ReagentID.String())
		}

		plan, shortage, err := e.plan(ctx, f, req.Quantity, true)
		if err != nil {
			return err
		}
		if shortage != nil {
			return apperror.NewInsufficientStock(
				shortage.MaterialID.String(),
				shortage.Required.String(),
				shortage.Available.String(),
			).WithDetail("material", shortage.Name)
		}

		lotCode, err := e.lots.NextCode(ctx, reagent.Area, req.AnalysisNumber)
		if err != nil {
			return err
		}

		observation := fmt.Sprintf("Production of reagent [%s, %s]", reagent.Code, reagent.Name)
		consumed := make([]entity.Movement, 0, len(plan))
		for _, line := range plan {
			m, err := e.ledger.Adjust(ctx, line.MaterialID, entity.MovementProduction, line.Required, observation, nil)
			if err != nil {
				return err
			}
			consumed = append(consumed, *m)
		}

		producedObservation := req.Observation
		if producedObservation == "" {
			producedObservation = observation
		}
		produced, err := e.ledger.Adjust(ctx, reagent.ID, entity.MovementProduction, req.Quantity, producedObservation, &lotCode)
		if err != nil {
			return err
		}

		result = Result{
			LotCode:  lotCode,
			Produced: *produced,
			Consumed: consumed,
		}
		return nil
	})
	if err != nil {
		if apperror.IsCode(err, apperror.CodeConcurrentModification) {
			return nil, apperror.NewProductionAborted(req.ReagentID.String(), err)
		}
		return nil, err
	}

	logger.Info(ctx, "production committed",
		"reagent_id", req.ReagentID.String(),
		"lot_code", result.LotCode,
		"quantity", req.Quantity.String(),
		"ingredients", len(result.Consumed),
	)
	return &result, nil
}

// Consult answers whether a run of qty would currently succeed, without
// touching stock or the lot counter. The answer is advisory: a concurrent
// operation can invalidate it before a following Produce. A dangling
// incomplete formula found here is discarded, the same self-healing the
// produce path does.
func (e *Engine) Consult(ctx context.Context, reagentID id.ID, qty types.Quantity) (*Feasibility, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", qty.String())
	}

	var feasibility Feasibility
	var dangling *formula.Formula
	err := e.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		reagent, err := e.items.Get(ctx, reagentID)
		if err != nil {
			return err
		}
		if reagent.Kind != entity.KindReagent {
			return apperror.NewValidation("only reagents can be produced").
				WithDetail("item_id", reagentID.String())
		}

		f, err := e.formulas.Get(ctx, reagentID)
		if err != nil {
			return err
		}
		if f.Incomplete() {
			dangling = f
			return apperror.NewFormulaIncomplete(reagentID.String())
		}

		plan, _, err := e.plan(ctx, f, qty, false)
		if err != nil {
			return err
		}

		feasibility.Feasible = true
		for _, line := range plan {
			if line.Available < line.Required {
				feasibility.Feasible = false
				feasibility.Shortages = append(feasibility.Shortages, line)
			}
		}
		return nil
	})
	if dangling != nil {
		// The discard must not ride the read-only snapshot; it opens its
		// own write transaction once the snapshot is closed.
		if _, derr := e.formulas.DiscardIfIncomplete(ctx, dangling); derr != nil {
			logger.Warn(ctx, "failed to discard incomplete formula",
				"reagent_id", reagentID.String(),
				"error", derr,
			)
		}
	}
	if err != nil {
		return nil, err
	}
	return &feasibility, nil
}

// plan resolves each ingredient to its required and available quantity.
// With locked=true rows are read FOR UPDATE and the first short material is
// returned as shortage; unlocked reads report all lines for Consult.
func (e *Engine) plan(ctx context.Context, f *formula.Formula, qty types.Quantity, locked bool) ([]Shortage, *Shortage, error) {
	factor := qty.Decimal()
	lines := make([]Shortage, 0, len(f.Ingredients))

	for _, ing := range f.Ingredients {
		var material *entity.StockedItem
		var err error
		if locked {
			material, err = e.items.GetForUpdate(ctx, ing.MaterialID)
		} else {
			material, err = e.items.Get(ctx, ing.MaterialID)
		}
		if err != nil {
			return nil, nil, err
		}

		required := types.NewQuantityFromDecimal(factor.Mul(ing.Ratio))
		line := Shortage{
			MaterialID: material.ID,
			Name:       material.Name,
			Required:   required,
			Available:  material.Quantity,
		}
		if locked && material.Quantity < required {
			return nil, &line, nil
		}
		lines = append(lines, line)
	}
	return lines, nil, nil
}
