package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"quimstock/internal/core/apperror"
	appctx "quimstock/internal/core/context"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/security"
	"quimstock/internal/domain/items"
	"quimstock/internal/domain/ledger"
	"quimstock/internal/infrastructure/http/v1/dto"
	"quimstock/internal/infrastructure/http/v1/middleware"
)

// MovementHandler serves manual stock adjustments and the movement register.
type MovementHandler struct {
	*BaseHandler
	ledger *ledger.Service
	items  *items.Service
}

// NewMovementHandler creates a new movement handler.
func NewMovementHandler(ledgerSvc *ledger.Service, itemsSvc *items.Service) *MovementHandler {
	return &MovementHandler{
		BaseHandler: NewBaseHandler(),
		ledger:      ledgerSvc,
		items:       itemsSvc,
	}
}

// Entry handles POST /:area/{materials|reagents}/:id/entries.
func (h *MovementHandler) Entry(kind entity.ItemKind) gin.HandlerFunc {
	return h.adjust(kind, entity.MovementEntry)
}

// Exit handles POST /:area/{materials|reagents}/:id/exits.
func (h *MovementHandler) Exit(kind entity.ItemKind) gin.HandlerFunc {
	return h.adjust(kind, entity.MovementExit)
}

func (h *MovementHandler) adjust(kind entity.ItemKind, movementKind entity.MovementKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := h.ParseID(c, "id")
		if !ok {
			return
		}
		var req dto.AdjustRequest
		if !h.BindJSON(c, &req) {
			return
		}

		// The item lookup pins the area and kind before the ledger moves stock.
		item, err := h.items.Get(c.Request.Context(), middleware.GetArea(c), kind, itemID)
		if err != nil {
			h.Error(c, err)
			return
		}

		movement, err := h.ledger.Adjust(c.Request.Context(), item.ID, movementKind, req.Quantity, req.Observation, req.LotCode)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, movement)
	}
}

// ItemHistory handles GET /:area/{materials|reagents}/:id/movements.
func (h *MovementHandler) ItemHistory(kind entity.ItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := h.ParseID(c, "id")
		if !ok {
			return
		}
		if _, err := h.items.Get(c.Request.Context(), middleware.GetArea(c), kind, itemID); err != nil {
			h.Error(c, err)
			return
		}

		movements, err := h.ledger.ItemHistory(c.Request.Context(), itemID, h.filterFromQuery(c))
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, dto.NewListResponse(movements))
	}
}

// AreaHistory handles GET /:area/movements.
func (h *MovementHandler) AreaHistory(c *gin.Context) {
	movements, err := h.ledger.AreaHistory(c.Request.Context(), middleware.GetArea(c), h.filterFromQuery(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(movements))
}

// History handles GET /movements: the combined register across areas.
// Users scoped to a single area see only that area's movements.
func (h *MovementHandler) History(c *gin.Context) {
	user := appctx.GetUser(c.Request.Context())
	if user == nil || user.Scope.IsEmpty() {
		h.Error(c, apperror.NewForbidden("no area scope"))
		return
	}

	filter := h.filterFromQuery(c)

	if user.Scope.CanActOn(security.AreaLab) && user.Scope.CanActOn(security.AreaWarehouse) {
		movements, err := h.ledger.History(c.Request.Context(), filter)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, dto.NewListResponse(movements))
		return
	}

	area := security.AreaLab
	if user.Scope.CanActOn(security.AreaWarehouse) {
		area = security.AreaWarehouse
	}
	movements, err := h.ledger.AreaHistory(c.Request.Context(), area, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(movements))
}

// LowStock handles GET /:area/low-stock.
func (h *MovementHandler) LowStock(c *gin.Context) {
	list, err := h.items.LowStock(c.Request.Context(), middleware.GetArea(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(list))
}

func (h *MovementHandler) filterFromQuery(c *gin.Context) ledger.Filter {
	filter := ledger.Filter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if v := c.Query("kind"); v != "" {
		kind := entity.MovementKind(v)
		filter.Kind = &kind
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.FromDate = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.ToDate = &t
		}
	}
	return filter
}
