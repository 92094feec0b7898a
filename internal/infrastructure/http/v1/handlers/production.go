package handlers

import (
	"github.com/gin-gonic/gin"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/types"
	"quimstock/internal/domain/items"
	"quimstock/internal/domain/production"
	"quimstock/internal/infrastructure/http/v1/dto"
	"quimstock/internal/infrastructure/http/v1/middleware"
	"quimstock/internal/infrastructure/storage/postgres"
)

// ProductionHandler serves production runs and feasibility consults.
type ProductionHandler struct {
	*BaseHandler
	engine *production.Engine
	items  *items.Service
	audit  AuditLog
}

// NewProductionHandler creates a new production handler.
func NewProductionHandler(engine *production.Engine, itemsSvc *items.Service, audit AuditLog) *ProductionHandler {
	return &ProductionHandler{
		BaseHandler: NewBaseHandler(),
		engine:      engine,
		items:       itemsSvc,
		audit:       audit,
	}
}

// Produce handles POST /:area/reagents/:id/production.
func (h *ProductionHandler) Produce(c *gin.Context) {
	reagentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ProduceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	// Pin area and kind before handing off to the engine.
	if _, err := h.items.Get(c.Request.Context(), middleware.GetArea(c), entity.KindReagent, reagentID); err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.engine.Produce(c.Request.Context(), production.Request{
		ReagentID:      reagentID,
		Quantity:       req.Quantity,
		AnalysisNumber: req.AnalysisNumber,
		Observation:    req.Observation,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	_ = h.audit.LogChange(c.Request.Context(), "production", reagentID, postgres.AuditActionProduce, map[string]any{
		"lot_code": result.LotCode,
		"quantity": req.Quantity.String(),
	})
	h.OK(c, result)
}

// Consult handles GET /:area/reagents/:id/production?quantity=...
// A read-only feasibility check: nothing moves.
func (h *ProductionHandler) Consult(c *gin.Context) {
	reagentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	raw := c.Query("quantity")
	if raw == "" {
		h.Error(c, apperror.NewValidation("quantity query parameter is required"))
		return
	}
	qty := types.Quantity(0)
	if err := qty.UnmarshalJSON([]byte(raw)); err != nil {
		h.Error(c, apperror.NewValidation("invalid quantity").WithDetail("value", raw))
		return
	}

	if _, err := h.items.Get(c.Request.Context(), middleware.GetArea(c), entity.KindReagent, reagentID); err != nil {
		h.Error(c, err)
		return
	}

	feasibility, err := h.engine.Consult(c.Request.Context(), reagentID, qty)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, feasibility)
}
