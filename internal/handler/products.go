package handler

import (
	"net/http"

	"sellsmart/internal/dto"
	"sellsmart/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProductsHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductsHandler) List(c *gin.Context) {
	products, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

func (h *ProductsHandler) BatchHistory(c *gin.Context) {
	history, err := h.svc.BatchHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": history})
}

// DeclareVariant grows (or creates) a variant axis on the product.
func (h *ProductsHandler) DeclareVariant(c *gin.Context) {
	var req dto.DeclareVariantRequest
	if !bindAndValidate(c, &req) {
		return
	}
	slot, err := h.svc.DeclareVariant(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.VariantSlotResponse{
		AttributeName: slot.Name,
		Values:        slot.Values,
		VariantRef:    slot.VariantRef,
	})
}
