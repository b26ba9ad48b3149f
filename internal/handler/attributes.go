package handler

import (
	"net/http"

	"sellsmart/internal/service"

	"github.com/gin-gonic/gin"
)

type AttributesHandler struct{ svc service.CatalogService }

func NewAttributesHandler(svc service.CatalogService) *AttributesHandler {
	return &AttributesHandler{svc: svc}
}

func (h *AttributesHandler) List(c *gin.Context) {
	attrs, err := h.svc.ListAttributes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attributes": attrs})
}
