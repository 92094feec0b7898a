package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"quimstock/internal/core/id"
	"quimstock/internal/infrastructure/http/v1/dto"
	"quimstock/internal/infrastructure/storage/postgres"
)

// AuditLog is the slice of the audit service the handlers need.
type AuditLog interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action postgres.AuditAction, changes map[string]any) error
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// AuditHistory handles GET /:area/{materials|reagents}/:id/audit.
// The item is deliberately not resolved first: the trail has to stay
// readable after the item itself was deleted.
func (h *ItemHandler) AuditHistory(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 50)

	entries, err := h.audit.GetEntityHistory(c.Request.Context(), string(h.kind), itemID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(entries))
}
