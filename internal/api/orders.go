package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"furniture-orders/internal/models"
	"furniture-orders/internal/service"

	"github.com/gin-gonic/gin"
)

func orderIDParam(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid order ID")
		return 0, false
	}
	return orderID, true
}

// expectedVersion reads an If-Match header holding an order version
func expectedVersion(c *gin.Context) (*int64, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" {
		return nil, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(c, "If-Match must carry an order version")
		return nil, false
	}
	return &v, true
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	order, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listOrdersByStatus(c *gin.Context) {
	orders, err := h.orders.ListOrdersByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) getStatusHistory(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	history, err := h.orders.GetStatusHistory(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) getTransitions(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	transitions, err := h.orders.GetTransitions(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transitions)
}

// updateOrder merges status, items and statusSla into an order
func (h *Handler) updateOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	// an empty body is an update that changes nothing
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.ExpectedVersion == nil {
		if req.ExpectedVersion, ok = expectedVersion(c); !ok {
			return
		}
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), orderID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type statusRequest struct {
	Status          models.Status `json:"status" binding:"required"`
	ExpectedVersion *int64        `json:"expectedVersion"`
}

// applyStatus moves an order to a new status
func (h *Handler) applyStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.ExpectedVersion == nil {
		if req.ExpectedVersion, ok = expectedVersion(c); !ok {
			return
		}
	}

	order, err := h.orders.ApplyStatus(c.Request.Context(), orderID, req.Status, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted."})
}

func (h *Handler) dashboard(c *gin.Context) {
	summary, err := h.orders.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
