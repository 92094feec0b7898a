package handlers

import (
	"github.com/gin-gonic/gin"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/domain/formula"
	"quimstock/internal/domain/items"
	"quimstock/internal/infrastructure/http/v1/dto"
	"quimstock/internal/infrastructure/http/v1/middleware"
	"quimstock/internal/infrastructure/storage/postgres"
)

// FormulaHandler serves the formula registry.
type FormulaHandler struct {
	*BaseHandler
	formulas *formula.Service
	items    *items.Service
	audit    AuditLog
}

// NewFormulaHandler creates a new formula handler.
func NewFormulaHandler(formulas *formula.Service, itemsSvc *items.Service, audit AuditLog) *FormulaHandler {
	return &FormulaHandler{
		BaseHandler: NewBaseHandler(),
		formulas:    formulas,
		items:       itemsSvc,
		audit:       audit,
	}
}

// Get handles GET /:area/reagents/:id/formula.
func (h *FormulaHandler) Get(c *gin.Context) {
	reagentID, ok := h.reagentInArea(c)
	if !ok {
		return
	}
	f, err := h.formulas.Get(c.Request.Context(), reagentID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, f)
}

// Create handles POST /:area/reagents/:id/formula.
func (h *FormulaHandler) Create(c *gin.Context) {
	reagentID, ok := h.reagentInArea(c)
	if !ok {
		return
	}
	var req dto.CreateFormulaRequest
	if !h.BindJSON(c, &req) {
		return
	}

	materialIDs := make([]id.ID, 0, len(req.MaterialIDs))
	for _, raw := range req.MaterialIDs {
		materialID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid material id").WithDetail("value", raw))
			return
		}
		materialIDs = append(materialIDs, materialID)
	}

	f, err := h.formulas.Create(c.Request.Context(), reagentID, materialIDs)
	if err != nil {
		h.Error(c, err)
		return
	}

	_ = h.audit.LogChange(c.Request.Context(), "formula", f.ID, postgres.AuditActionCreate, map[string]any{
		"reagent_id":  reagentID.String(),
		"ingredients": len(f.Ingredients),
	})
	h.Created(c, f.ID.String())
}

// SetRatios handles PUT /:area/reagents/:id/formula/ratios.
func (h *FormulaHandler) SetRatios(c *gin.Context) {
	reagentID, ok := h.reagentInArea(c)
	if !ok {
		return
	}
	var req dto.SetRatiosRequest
	if !h.BindJSON(c, &req) {
		return
	}

	f, err := h.formulas.SetRatios(c.Request.Context(), reagentID, req.Ratios)
	if err != nil {
		h.Error(c, err)
		return
	}

	_ = h.audit.LogChange(c.Request.Context(), "formula", f.ID, postgres.AuditActionUpdate, map[string]any{
		"reagent_id": reagentID.String(),
	})
	h.OK(c, f)
}

// Delete handles DELETE /:area/reagents/:id/formula.
func (h *FormulaHandler) Delete(c *gin.Context) {
	reagentID, ok := h.reagentInArea(c)
	if !ok {
		return
	}
	if err := h.formulas.Delete(c.Request.Context(), reagentID); err != nil {
		h.Error(c, err)
		return
	}

	_ = h.audit.LogChange(c.Request.Context(), "formula", reagentID, postgres.AuditActionDelete, nil)
	h.NoContent(c)
}

// reagentInArea resolves :id and checks it is a reagent of the request area.
func (h *FormulaHandler) reagentInArea(c *gin.Context) (id.ID, bool) {
	reagentID, ok := h.ParseID(c, "id")
	if !ok {
		return id.Nil(), false
	}
	if _, err := h.items.Get(c.Request.Context(), middleware.GetArea(c), entity.KindReagent, reagentID); err != nil {
		h.Error(c, err)
		return id.Nil(), false
	}
	return reagentID, true
}
