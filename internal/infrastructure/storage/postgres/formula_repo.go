package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/id"
	"quimstock/internal/core/types"
	"quimstock/internal/domain/formula"
)

const (
	formulasTable    = "formulas"
	ingredientsTable = "formula_ingredients"
)

// FormulaRepo implements formula.Repository.
type FormulaRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewFormulaRepo creates a new formula repository.
func NewFormulaRepo(txManager *TxManager) *FormulaRepo {
	return &FormulaRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the formula together with its ingredient lines.
func (r *FormulaRepo) Create(ctx context.Context, f *formula.Formula) error {
	q := r.builder.Insert(formulasTable).
		Columns("id", "reagent_id", "area", "created_at", "updated_at").
		Values(f.ID, f.ReagentID, f.Area, f.CreatedAt, f.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert formula: %w", err)
	}

	iq := r.builder.Insert(ingredientsTable).
		Columns("formula_id", "material_id", "position", "ratio")
	for _, ing := range f.Ingredients {
		iq = iq.Values(f.ID, ing.MaterialID, ing.Position, ing.Ratio)
	}

	sql, args, err = iq.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert ingredients: %w", err)
	}
	return nil
}

// GetByReagent loads a reagent's formula with ingredients in position order.
func (r *FormulaRepo) GetByReagent(ctx context.Context, reagentID id.ID) (*formula.Formula, error) {
	q := r.builder.Select("id", "reagent_id", "area", "created_at", "updated_at").
		From(formulasTable).
		Where(squirrel.Eq{"reagent_id": reagentID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var f formula.Formula
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &f, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("formula", reagentID.String())
		}
		return nil, fmt.Errorf("get formula: %w", err)
	}

	iq := r.builder.Select("formula_id", "material_id", "position", "ratio").
		From(ingredientsTable).
		Where(squirrel.Eq{"formula_id": f.ID}).
		OrderBy("position")

	sql, args, err = iq.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &f.Ingredients, sql, args...); err != nil {
		return nil, fmt.Errorf("select ingredients: %w", err)
	}
	return &f, nil
}

// SetRatios writes ratios by ingredient position, all lines at once.
func (r *FormulaRepo) SetRatios(ctx context.Context, formulaID id.ID, ratios []types.Ratio) error {
	querier := r.txManager.GetQuerier(ctx)

	for position, ratio := range ratios {
		q := r.builder.Update(ingredientsTable).
			Set("ratio", ratio).
			Where(squirrel.Eq{"formula_id": formulaID, "position": position})

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		tag, err := querier.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update ratio: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.NewNotFound("ingredient", fmt.Sprintf("%s/%d", formulaID, position))
		}
	}

	uq := r.builder.Update(formulasTable).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": formulaID})
	sql, args, err := uq.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("touch formula: %w", err)
	}
	return nil
}

// Delete removes the formula; ingredient lines go with it (ON DELETE CASCADE).
func (r *FormulaRepo) Delete(ctx context.Context, formulaID id.ID) error {
	q := r.builder.Delete(formulasTable).
		Where(squirrel.Eq{"id": formulaID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete formula: %w", err)
	}
	return nil
}

// MaterialInUse reports whether any formula references the material.
func (r *FormulaRepo) MaterialInUse(ctx context.Context, materialID id.ID) (bool, error) {
	sql := `SELECT EXISTS (SELECT 1 FROM formula_ingredients WHERE material_id = $1)`

	var inUse bool
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &inUse, sql, materialID); err != nil {
		return false, fmt.Errorf("check material in use: %w", err)
	}
	return inUse, nil
}
