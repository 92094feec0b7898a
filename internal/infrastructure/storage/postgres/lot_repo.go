package postgres

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"quimstock/internal/core/security"
)

const lotCountersTable = "lot_counters"

// LotRepo implements lot.Repository on the per-area counter table.
type LotRepo struct {
	txManager *TxManager
}

// NewLotRepo creates a new lot counter repository.
func NewLotRepo(txManager *TxManager) *LotRepo {
	return &LotRepo{txManager: txManager}
}

// GetForUpdate returns the area's counter with a row lock, or 0 when no
// counter row exists yet. The lock serializes concurrent productions in the
// same area so two runs cannot be issued the same sequence number.
func (r *LotRepo) GetForUpdate(ctx context.Context, area security.Area) (int64, error) {
	sql := `
		SELECT nro
		FROM lot_counters
		WHERE area = $1
		FOR UPDATE
	`

	var nro int64
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &nro, sql, area); err != nil {
		if pgxscan.NotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get lot counter: %w", err)
	}
	return nro, nil
}

// Save upserts the counter value for the area.
func (r *LotRepo) Save(ctx context.Context, area security.Area, value int64) error {
	sql := `
		INSERT INTO lot_counters (area, nro, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (area)
		DO UPDATE SET nro = EXCLUDED.nro, updated_at = now()
	`

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, area, value); err != nil {
		return fmt.Errorf("save lot counter: %w", err)
	}
	return nil
}
