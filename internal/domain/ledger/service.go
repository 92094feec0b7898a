package ledger

import (
	"context"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/tx"
	"quimstock/internal/core/types"
	"quimstock/pkg/logger"

	appctx "quimstock/internal/core/context"
)

// Service books stock movements. Every quantity change in the system goes
// through Adjust: the item update and the movement record commit together or
// not at all, and no adjustment may drive a quantity below zero.
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

// Adjust books a single movement of qty against the item and returns the
// recorded movement. qty must be strictly positive; the movement kind together
// with the item kind decides the direction. Returns INSUFFICIENT_STOCK, with
// the store untouched, when a decrease would overdraw the item.
//
// Runs in the ambient transaction when one is already open (the production
// engine opens one around its whole unit of work), otherwise in its own.
func (s *Service) Adjust(ctx context.Context, itemID id.ID, kind entity.MovementKind, qty types.Quantity, observation string, lotCode *string) (*entity.Movement, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", qty.String())
	}

	var movement entity.Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.items.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}

		movement = entity.NewMovement(item, kind, qty, observation, appctx.GetUsername(ctx), lotCode)

		newQty := item.Quantity + movement.SignedQuantity()
		if newQty.IsNegative() {
			return apperror.NewInsufficientStock(item.ID.String(), qty.String(), item.Quantity.String())
		}

		if err := s.items.UpdateQuantity(ctx, item.ID, newQty.Int64Scaled()); err != nil {
			return err
		}
		return s.repo.Append(ctx, movement)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement booked",
		"movement_id", movement.ID.String(),
		"item_id", itemID.String(),
		"kind", string(kind),
		"quantity", qty.String(),
	)
	return &movement, nil
}

// ItemHistory returns an item's movements, newest first.
func (s *Service) ItemHistory(ctx context.Context, itemID id.ID, filter Filter) ([]entity.Movement, error) {
	return s.repo.ListByItem(ctx, itemID, filter)
}

// AreaHistory returns one area's movements across all items, newest first.
func (s *Service) AreaHistory(ctx context.Context, area security.Area, filter Filter) ([]entity.Movement, error) {
	if !area.Valid() {
		return nil, apperror.NewValidation("invalid area").WithDetail("value", string(area))
	}
	return s.repo.ListByArea(ctx, area, filter)
}

// History returns the combined register of both areas, newest first.
func (s *Service) History(ctx context.Context, filter Filter) ([]entity.Movement, error) {
	return s.repo.List(ctx, filter)
}
