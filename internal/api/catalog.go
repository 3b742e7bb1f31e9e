package api

import (
	"net/http"
	"strconv"

	"furniture-orders/internal/lifecycle"
	"furniture-orders/internal/models"
	"furniture-orders/internal/service"

	"github.com/gin-gonic/gin"
)

func productIDParam(c *gin.Context) (int64, bool) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid product ID")
		return 0, false
	}
	return productID, true
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), productID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(c.Request.Context(), productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted."})
}

func (h *Handler) createSupplier(c *gin.Context) {
	var req service.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	supplier, err := h.catalog.CreateSupplier(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

func (h *Handler) listSuppliers(c *gin.Context) {
	suppliers, err := h.catalog.ListSuppliers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

func (h *Handler) updateSupplier(c *gin.Context) {
	var req service.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	supplier, err := h.catalog.UpdateSupplier(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (h *Handler) deleteSupplier(c *gin.Context) {
	if err := h.catalog.DeleteSupplier(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted."})
}

func (h *Handler) createOption(c *gin.Context) {
	var req service.OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	option, err := h.catalog.CreateOption(c.Request.Context(), c.Param("category"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, option)
}

func (h *Handler) listOptions(c *gin.Context) {
	options, err := h.catalog.ListOptions(c.Request.Context(), c.Param("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

func (h *Handler) deleteOption(c *gin.Context) {
	category := c.Param("category")
	if err := h.catalog.DeleteOption(c.Request.Context(), category, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": models.Category(category).Title() + " deleted"})
}

type slaResponse struct {
	Defaults  *models.StatusSla `json:"defaults"`
	Effective models.StatusSla  `json:"effective"`
}

func newSlaResponse(defaults *models.StatusSla) slaResponse {
	if defaults == nil {
		defaults = &models.StatusSla{}
	}
	return slaResponse{
		Defaults:  defaults,
		Effective: lifecycle.EffectiveSla(nil, defaults),
	}
}

func (h *Handler) getSlaDefaults(c *gin.Context) {
	defaults, err := h.sla.Defaults(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSlaResponse(defaults))
}

func (h *Handler) putSlaDefaults(c *gin.Context) {
	var req models.StatusSla
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	defaults, err := h.sla.SetDefaults(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSlaResponse(defaults))
}
