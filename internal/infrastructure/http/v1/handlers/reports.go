package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"quimstock/internal/core/entity"
	"quimstock/internal/domain/items"
	"quimstock/internal/domain/ledger"
	"quimstock/internal/infrastructure/http/v1/middleware"
)

// ReportHandler exports inventory state as xlsx workbooks.
type ReportHandler struct {
	*BaseHandler
	items  *items.Service
	ledger *ledger.Service
}

// NewReportHandler creates a new report handler.
func NewReportHandler(itemsSvc *items.Service, ledgerSvc *ledger.Service) *ReportHandler {
	return &ReportHandler{
		BaseHandler: NewBaseHandler(),
		items:       itemsSvc,
		ledger:      ledgerSvc,
	}
}

// StockReport handles GET /:area/reports/stock.
// The workbook has one sheet per catalog and one for recent movements.
func (h *ReportHandler) StockReport(c *gin.Context) {
	ctx := c.Request.Context()
	area := middleware.GetArea(c)

	materials, err := h.items.List(ctx, area, entity.KindMaterial)
	if err != nil {
		h.Error(c, err)
		return
	}
	reagents, err := h.items.List(ctx, area, entity.KindReagent)
	if err != nil {
		h.Error(c, err)
		return
	}
	movements, err := h.ledger.AreaHistory(ctx, area, ledger.Filter{Limit: 1000})
	if err != nil {
		h.Error(c, err)
		return
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	writeItemSheet(f, "Materials", materials)
	writeItemSheet(f, "Reagents", reagents)
	writeMovementSheet(f, "Movements", movements)

	// Drop the default sheet created by excelize.
	_ = f.DeleteSheet("Sheet1")

	filename := fmt.Sprintf("stock_%s_%s.xlsx", area, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		h.Error(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func writeItemSheet(f *excelize.File, sheet string, list []entity.StockedItem) {
	_, _ = f.NewSheet(sheet)
	headers := []string{"Code", "Name", "Unit", "Quantity", "Low stock", "Has formula"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}

	for row, item := range list {
		values := []any{
			item.Code, item.Name, string(item.Unit),
			item.Quantity.Float64(), item.LowStock.Float64(), item.HasFormula,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
}

func writeMovementSheet(f *excelize.File, sheet string, movements []entity.Movement) {
	_, _ = f.NewSheet(sheet)
	headers := []string{"Recorded at", "Item", "Item kind", "Kind", "Quantity", "Lot code", "Observation", "User"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}

	for row, m := range movements {
		lot := ""
		if m.LotCode != nil {
			lot = *m.LotCode
		}
		values := []any{
			m.RecordedAt.Format(time.RFC3339), m.ItemID.String(), string(m.ItemKind),
			string(m.Kind), m.Quantity.Float64(), lot, m.Observation, m.Username,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
}
