// Package lot issues batch codes for production runs.
//
// Each area keeps an independent sequence counter. The counter row is locked
// and advanced inside the caller's transaction, so the issued code commits or
// rolls back together with the production that requested it.
package lot

import (
	"context"
	"time"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/security"
	"quimstock/internal/core/tx"
	"quimstock/pkg/logger"
	"quimstock/pkg/lotcode"
)

// Repository persists the per-area sequence counters.
type Repository interface {
	// GetForUpdate returns the area's stored counter with a row lock,
	// or 0 when no counter row exists yet.
	GetForUpdate(ctx context.Context, area security.Area) (int64, error)

	// Save upserts the counter value for the area.
	Save(ctx context.Context, area security.Area, value int64) error
}

// ProductionLog is the slice of the ledger the year-reset rule reads:
// when the area last booked a production movement.
type ProductionLog interface {
	LastProductionAt(ctx context.Context, area security.Area) (*time.Time, error)
}

// Service advances counters and formats lot codes.
type Service struct {
	repo        Repository
	productions ProductionLog
	txManager   tx.Manager

	// now is swappable in tests.
	now func() time.Time
}

func NewService(repo Repository, productions ProductionLog, txManager tx.Manager) *Service {
	return &Service{
		repo:        repo,
		productions: productions,
		txManager:   txManager,
		now:         time.Now,
	}
}

// NextCode advances the area's counter and returns the formatted lot code.
//
// The sequence restarts at 1 when the area's most recent production movement
// was booked in an earlier year, otherwise it increments. The analysis number
// is caller-provided and echoed into the last four digits.
func (s *Service) NextCode(ctx context.Context, area security.Area, analysisNumber int) (string, error) {
	if !area.Valid() {
		return "", apperror.NewValidation("invalid area").WithDetail("value", string(area))
	}
	if analysisNumber <= 0 {
		return "", apperror.NewValidation("analysis number must be positive").
			WithDetail("field", "analysisNumber").
			WithDetail("value", analysisNumber)
	}

	var code string
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.repo.GetForUpdate(ctx, area)
		if err != nil {
			return err
		}

		lastAt, err := s.productions.LastProductionAt(ctx, area)
		if err != nil {
			return err
		}
		var lastYear *int
		if lastAt != nil {
			y := lastAt.Year()
			lastYear = &y
		}

		now := s.now().UTC()
		next := lotcode.NextCounter(stored, lastYear, now.Year())
		if err := s.repo.Save(ctx, area, next); err != nil {
			return err
		}

		code = lotcode.Format(now, next, analysisNumber)
		return nil
	})
	if err != nil {
		return "", err
	}

	logger.Debug(ctx, "lot code issued", "area", area.String(), "lot_code", code)
	return code, nil
}
