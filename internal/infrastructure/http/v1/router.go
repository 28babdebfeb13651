// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"minimart/internal/core/appctx"
	"minimart/internal/core/tx"
	"minimart/internal/domain/audit"
	"minimart/internal/domain/auth"
	"minimart/internal/domain/catalog/product"
	"minimart/internal/domain/inventory"
	"minimart/internal/domain/order"
	"minimart/internal/domain/sales"
	"minimart/internal/domain/views"
	"minimart/internal/infrastructure/http/v1/handlers"
	"minimart/internal/infrastructure/http/v1/middleware"
	"minimart/pkg/logger"
)

// RouterConfig holds everything the HTTP surface depends on.
type RouterConfig struct {
	Pool    *pgxpool.Pool
	Logger  *logger.Logger
	Version string

	JWTValidator middleware.JWTValidator
	TxManager    tx.Manager
	ViewCache    views.SnapshotStore

	AuthService      *auth.Service
	ProductService   *product.Service
	InventoryService *inventory.Service
	OrderService     *order.Service
	SalesService     *sales.Service
	AuditService     *audit.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	// API v1
	api := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(base, cfg.AuthService)
		publicAuth := api.Group("/auth")
		protectedAuth := api.Group("/auth")
		protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
		authHandler.RegisterRoutes(publicAuth, protectedAuth)

		protected := api.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerProductRoutes(protected, base, cfg)
		registerInventoryRoutes(protected, base, cfg)
		registerOrderRoutes(protected, base, cfg)
		registerSalesRoutes(protected, base, cfg)
		registerAuditRoutes(protected, base, cfg)
	}

	return router
}

// registerProductRoutes registers catalog endpoints. Reads are open to
// every authenticated role; writes are admin only.
func registerProductRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewProductHandler(base, cfg.ProductService, cfg.InventoryService, cfg.TxManager)

	products := rg.Group("/products")
	{
		products.GET("", handler.List)
		products.GET("/:id", handler.Get)
		products.GET("/barcode/:barcode", handler.GetByBarcode)

		products.POST("", middleware.RequireRole(), handler.Create)
		products.PUT("/:id", middleware.RequireRole(), handler.Update)
		products.DELETE("/:id", middleware.RequireRole(), handler.Deactivate)
	}
}

// registerInventoryRoutes registers stock endpoints. Adjustments are for
// store staff; vendors never touch counters directly.
func registerInventoryRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewInventoryHandler(base, cfg.InventoryService, cfg.ProductService, cfg.AuditService, cfg.TxManager)

	inv := rg.Group("/inventory")
	inv.Use(middleware.RequireRole(appctx.RoleCashier))
	{
		inv.GET("/movements", handler.Movements)
		inv.GET("/low-stock", handler.LowStock)
		inv.GET("/:productId", handler.Get)
		inv.POST("/:productId/adjust", handler.Adjust)
	}
}

// registerOrderRoutes registers the wholesale order lifecycle.
func registerOrderRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewOrderHandler(base, cfg.OrderService, cfg.AuthService, cfg.ViewCache)

	orders := rg.Group("/orders")
	{
		// Vendors submit and follow their own orders.
		orders.POST("", middleware.RequireRole(appctx.RoleVendor), handler.Create)
		orders.GET("/customer/:customerId", middleware.RequireRole(appctx.RoleCashier, appctx.RoleVendor), handler.ListByCustomer)
		orders.GET("/:id", handler.Get)

		// Packing board and lifecycle moves are for store staff.
		orders.GET("/active", middleware.RequireRole(appctx.RoleCashier), handler.ListActive)
		orders.PATCH("/:id/status", middleware.RequireRole(appctx.RoleCashier), handler.UpdateStatus)
		orders.POST("/:id/items/unavailable", middleware.RequireRole(appctx.RoleCashier), handler.MarkItemUnavailable)
		orders.POST("/:id/payment", middleware.RequireRole(appctx.RoleCashier), handler.CompletePayment)

		orders.POST("/:id/cancel", middleware.RequireRole(appctx.RoleCashier, appctx.RoleVendor), handler.Cancel)
	}
}

// registerSalesRoutes registers the retail POS endpoints.
func registerSalesRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewSalesHandler(base, cfg.SalesService)

	salesGroup := rg.Group("/sales")
	salesGroup.Use(middleware.RequireRole(appctx.RoleCashier))
	{
		salesGroup.POST("/checkout", handler.Checkout)
		salesGroup.GET("", handler.List)
		salesGroup.GET("/summary/daily", handler.DailySummary)
		salesGroup.GET("/receipt/:receiptNo", handler.GetByReceipt)
		salesGroup.GET("/:id", handler.Get)
	}
}

// registerAuditRoutes registers the audit trail endpoint (admin only).
func registerAuditRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	handler := handlers.NewAuditHandler(base, cfg.AuditService)
	rg.GET("/audit", middleware.RequireRole(), handler.List)
}
