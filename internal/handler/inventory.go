package handler

import (
	"net/http"

	"sellsmart/internal/dto"
	"sellsmart/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// ImportBatch reconciles a purchase batch. The response always carries both
// results and errors arrays — products succeed or fail independently, so a
// 200 with a non-empty errors list is the normal partial-success shape.
func (h *InventoryHandler) ImportBatch(c *gin.Context) {
	var req dto.BatchImportRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ApplyBatch(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecomputeAggregates forces a fresh projection of a product's totals.
func (h *InventoryHandler) RecomputeAggregates(c *gin.Context) {
	p, err := h.svc.RecomputeAggregates(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
