package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/domain/ledger"
)

const movementsTable = "movements"

var movementColumns = []string{
	"id", "item_id", "item_kind", "kind", "quantity",
	"observation", "lot_code", "username", "area", "recorded_at",
}

// LedgerRepo implements ledger.Repository on the movements table.
type LedgerRepo struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new movement register repository.
func NewLedgerRepo(txManager *TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts one movement record.
func (r *LedgerRepo) Append(ctx context.Context, m entity.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			m.ID, m.ItemID, m.ItemKind, m.Kind, m.Quantity.Int64Scaled(),
			m.Observation, m.LotCode, m.Username, m.Area, m.RecordedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// AppendMany bulk inserts movements via the COPY protocol.
// Requires a transaction; used by seeding and imports.
func (r *LedgerRepo) AppendMany(ctx context.Context, movements []entity.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	inserter := NewBatchInserter(r.txManager)
	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{
			m.ID, m.ItemID, m.ItemKind, m.Kind, m.Quantity.Int64Scaled(),
			m.Observation, m.LotCode, m.Username, m.Area, m.RecordedAt,
		})
	}
	if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}
	return nil
}

// ListByItem returns an item's history, newest first.
func (r *LedgerRepo) ListByItem(ctx context.Context, itemID id.ID, filter ledger.Filter) ([]entity.Movement, error) {
	q := r.baseSelect(filter).Where(squirrel.Eq{"item_id": itemID})
	return r.selectMovements(ctx, q)
}

// ListByArea returns one area's history across items, newest first.
func (r *LedgerRepo) ListByArea(ctx context.Context, area security.Area, filter ledger.Filter) ([]entity.Movement, error) {
	q := r.baseSelect(filter).Where(squirrel.Eq{"area": area})
	return r.selectMovements(ctx, q)
}

// List returns the combined register of both areas, newest first.
func (r *LedgerRepo) List(ctx context.Context, filter ledger.Filter) ([]entity.Movement, error) {
	return r.selectMovements(ctx, r.baseSelect(filter))
}

// LastProductionAt returns when the area last booked a production movement.
func (r *LedgerRepo) LastProductionAt(ctx context.Context, area security.Area) (*time.Time, error) {
	sql := `
		SELECT recorded_at
		FROM movements
		WHERE area = $1 AND kind = $2
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var recordedAt time.Time
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &recordedAt, sql, area, entity.MovementProduction); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last production: %w", err)
	}
	return &recordedAt, nil
}

// DeleteByItem removes an item's entire history.
func (r *LedgerRepo) DeleteByItem(ctx context.Context, itemID id.ID) error {
	q := r.builder.Delete(movementsTable).
		Where(squirrel.Eq{"item_id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete movements: %w", err)
	}
	return nil
}

func (r *LedgerRepo) baseSelect(filter ledger.Filter) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		OrderBy("recorded_at DESC")

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.ItemKind != nil {
		q = q.Where(squirrel.Eq{"item_kind": *filter.ItemKind})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"recorded_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"recorded_at": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func (r *LedgerRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]entity.Movement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}
