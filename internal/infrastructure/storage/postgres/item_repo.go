package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
)

const itemsTable = "items"

var itemColumns = []string{
	"id", "kind", "name", "code", "unit",
	"quantity", "low_stock", "area", "has_formula",
	"version", "created_at", "updated_at",
}

// ItemRepo implements persistence for stocked items. It backs the catalog
// service as well as the narrower stores the ledger, the formula registry and
// the production engine declare.
type ItemRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txManager *TxManager) *ItemRepo {
	return &ItemRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new item.
func (r *ItemRepo) Create(ctx context.Context, item *entity.StockedItem) error {
	q := r.builder.Insert(itemsTable).
		Columns(itemColumns...).
		Values(
			item.ID, item.Kind, item.Name, item.Code, item.Unit,
			item.Quantity.Int64Scaled(), item.LowStock.Int64Scaled(), item.Area, item.HasFormula,
			item.Version, item.CreatedAt, item.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// Get loads an item by ID.
func (r *ItemRepo) Get(ctx context.Context, itemID id.ID) (*entity.StockedItem, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"id": itemID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item entity.StockedItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", itemID.String())
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// GetForUpdate loads an item with a row lock. Requires a transaction.
func (r *ItemRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*entity.StockedItem, error) {
	sql := `
		SELECT id, kind, name, code, unit,
		       quantity, low_stock, area, has_formula,
		       version, created_at, updated_at
		FROM items
		WHERE id = $1
		FOR UPDATE
	`

	var item entity.StockedItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &item, sql, itemID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", itemID.String())
		}
		return nil, fmt.Errorf("get item for update: %w", err)
	}
	return &item, nil
}

// GetByCode looks an item up by its catalog code within one area and kind.
func (r *ItemRepo) GetByCode(ctx context.Context, area security.Area, kind entity.ItemKind, code string) (*entity.StockedItem, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"area": area, "kind": kind, "code": code}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item entity.StockedItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", code)
		}
		return nil, fmt.Errorf("get item by code: %w", err)
	}
	return &item, nil
}

// List returns an area's catalog of one kind, ordered by name.
func (r *ItemRepo) List(ctx context.Context, area security.Area, kind entity.ItemKind) ([]entity.StockedItem, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"area": area, "kind": kind}).
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []entity.StockedItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	return items, nil
}

// ListLowStock returns the area's items at or below their alert threshold.
func (r *ItemRepo) ListLowStock(ctx context.Context, area security.Area) ([]entity.StockedItem, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"area": area}).
		Where("quantity <= low_stock").
		OrderBy("kind", "name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []entity.StockedItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select low stock items: %w", err)
	}
	return items, nil
}

// Update persists catalog fields with an optimistic version check.
// The quantity column is owned by UpdateQuantity.
func (r *ItemRepo) Update(ctx context.Context, item *entity.StockedItem) error {
	q := r.builder.Update(itemsTable).
		Set("name", item.Name).
		Set("code", item.Code).
		Set("unit", item.Unit).
		Set("low_stock", item.LowStock.Int64Scaled()).
		Set("version", item.Version).
		Set("updated_at", item.UpdatedAt).
		Where(squirrel.Eq{"id": item.ID}).
		Where(squirrel.Lt{"version": item.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("item", item.ID.String())
	}
	return nil
}

// UpdateQuantity writes the new stock level. Callers hold the row lock.
func (r *ItemRepo) UpdateQuantity(ctx context.Context, itemID id.ID, quantity int64) error {
	q := r.builder.Update(itemsTable).
		Set("quantity", quantity).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("item", itemID.String())
	}
	return nil
}

// SetHasFormula flips the producible flag on a reagent.
func (r *ItemRepo) SetHasFormula(ctx context.Context, reagentID id.ID, has bool) error {
	q := r.builder.Update(itemsTable).
		Set("has_formula", has).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": reagentID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set has_formula: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("item", reagentID.String())
	}
	return nil
}

// Delete removes an item.
func (r *ItemRepo) Delete(ctx context.Context, itemID id.ID) error {
	q := r.builder.Delete(itemsTable).
		Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}
