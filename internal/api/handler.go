package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"furniture-orders/internal/lifecycle"
	"furniture-orders/internal/models"
	"furniture-orders/internal/service"
	"furniture-orders/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService is the order behavior the HTTP layer needs
type OrderService interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*service.OrderView, error)
	ListOrders(ctx context.Context) ([]service.OrderView, error)
	ListOrdersByStatus(ctx context.Context, status string) ([]service.OrderView, error)
	GetStatusHistory(ctx context.Context, orderID int64) (*service.StatusHistoryResponse, error)
	GetTransitions(ctx context.Context, orderID int64) (*service.TransitionsResponse, error)
	UpdateOrder(ctx context.Context, orderID int64, req *service.UpdateOrderRequest) (*service.OrderView, error)
	ApplyStatus(ctx context.Context, orderID int64, status models.Status, expectedVersion *int64) (*service.OrderView, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	Dashboard(ctx context.Context) (*lifecycle.Summary, error)
}

// CatalogService is the catalog behavior the HTTP layer needs
type CatalogService interface {
	CreateOption(ctx context.Context, category string, req *service.OptionRequest) (*models.Option, error)
	ListOptions(ctx context.Context, category string) ([]models.Option, error)
	DeleteOption(ctx context.Context, category, id string) error

	CreateSupplier(ctx context.Context, req *service.SupplierRequest) (*models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	UpdateSupplier(ctx context.Context, id string, req *service.SupplierRequest) (*models.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, req *service.ProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, productID int64, req *service.ProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID int64) error
}

// SlaService manages the global SLA defaults
type SlaService interface {
	Defaults(ctx context.Context) (*models.StatusSla, error)
	SetDefaults(ctx context.Context, sla *models.StatusSla) (*models.StatusSla, error)
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	orders  OrderService
	catalog CatalogService
	sla     SlaService
	probes  map[string]Pinger
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(orders OrderService, catalog CatalogService, sla SlaService, probes map[string]Pinger) *Handler {
	return &Handler{
		orders:  orders,
		catalog: catalog,
		sla:     sla,
		probes:  probes,
		logger:  util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(customRecovery(h.logger))
	router.Use(tracingMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(loggingMiddleware(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:orderId", h.getOrder)
		v1.GET("/orders/:orderId/history", h.getStatusHistory)
		v1.GET("/orders/:orderId/transitions", h.getTransitions)
		v1.PUT("/orders/:orderId", h.updateOrder)
		v1.PUT("/orders/:orderId/status", h.applyStatus)
		v1.DELETE("/orders/:orderId", h.deleteOrder)
		v1.GET("/orders-by-status/:status", h.listOrdersByStatus)
		v1.GET("/dashboard", h.dashboard)

		v1.GET("/sla-defaults", h.getSlaDefaults)
		v1.PUT("/sla-defaults", h.putSlaDefaults)

		v1.POST("/products", h.createProduct)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:productId", h.getProduct)
		v1.PUT("/products/:productId", h.updateProduct)
		v1.DELETE("/products/:productId", h.deleteProduct)

		v1.POST("/suppliers", h.createSupplier)
		v1.GET("/suppliers", h.listSuppliers)
		v1.PUT("/suppliers/:id", h.updateSupplier)
		v1.DELETE("/suppliers/:id", h.deleteSupplier)

		v1.POST("/options/:category", h.createOption)
		v1.GET("/options/:category", h.listOptions)
		v1.DELETE("/options/:category/:id", h.deleteOption)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.probes))
	ready := true
	for name, p := range h.probes {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}

// customRecovery logs panics and answers with a JSON 500
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": fmt.Sprintf("internal server error: %v", recovered),
		})
	})
}

// tracingMiddleware opens a span per request
func tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := util.StartSpan(c.Request.Context(), c.Request.Method+" "+route)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
		)
	}
}

// loggingMiddleware logs HTTP requests with their trace id
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("trace_id", util.TraceID(c.Request.Context())),
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
