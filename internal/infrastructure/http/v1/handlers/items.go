package handlers

import (
	"github.com/gin-gonic/gin"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/domain/items"
	"quimstock/internal/infrastructure/http/v1/dto"
	"quimstock/internal/infrastructure/http/v1/middleware"
	"quimstock/internal/infrastructure/storage/postgres"
)

// ItemHandler serves one catalog (materials or reagents); the router mounts
// it twice with the matching kind.
type ItemHandler struct {
	*BaseHandler
	service *items.Service
	audit   AuditLog
	kind    entity.ItemKind
}

// NewItemHandler creates a handler bound to one item kind.
func NewItemHandler(service *items.Service, audit AuditLog, kind entity.ItemKind) *ItemHandler {
	return &ItemHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
		kind:        kind,
	}
}

// List handles GET /:area/{materials|reagents}.
func (h *ItemHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), middleware.GetArea(c), h.kind)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(list))
}

// Get handles GET /:area/{materials|reagents}/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	item, err := h.service.Get(c.Request.Context(), middleware.GetArea(c), h.kind, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// Create handles POST /:area/{materials|reagents}.
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	unit, valid := entity.ParseUnit(req.Unit)
	if !valid {
		h.Error(c, apperror.NewValidation("invalid unit of measure").WithDetail("value", req.Unit))
		return
	}

	item, err := h.service.Create(c.Request.Context(), middleware.GetArea(c), h.kind, items.CreateInput{
		Name:            req.Name,
		Code:            req.Code,
		Unit:            unit,
		LowStock:        req.LowStock,
		InitialQuantity: req.InitialQuantity,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	_ = h.audit.LogChange(c.Request.Context(), string(h.kind), item.ID, postgres.AuditActionCreate, map[string]any{
		"name": item.Name,
		"code": item.Code,
	})
	h.Created(c, item.ID.String())
}

// Update handles PUT /:area/{materials|reagents}/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	unit, valid := entity.ParseUnit(req.Unit)
	if !valid {
		h.Error(c, apperror.NewValidation("invalid unit of measure").WithDetail("value", req.Unit))
		return
	}

	item, err := h.service.Update(c.Request.Context(), middleware.GetArea(c), h.kind, itemID, items.UpdateInput{
		Name:     req.Name,
		Code:     req.Code,
		Unit:     unit,
		LowStock: req.LowStock,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	_ = h.audit.LogChange(c.Request.Context(), string(h.kind), item.ID, postgres.AuditActionUpdate, map[string]any{
		"name": item.Name,
		"code": item.Code,
	})
	h.OK(c, item)
}

// Delete handles DELETE /:area/{materials|reagents}/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.GetArea(c), h.kind, itemID); err != nil {
		h.Error(c, err)
		return
	}

	_ = h.audit.LogChange(c.Request.Context(), string(h.kind), itemID, postgres.AuditActionDelete, nil)
	h.NoContent(c)
}
