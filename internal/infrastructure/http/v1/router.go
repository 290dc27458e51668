// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"fuelbridge/internal/domain/chain"
	"fuelbridge/internal/domain/distribution"
	"fuelbridge/internal/domain/invoice"
	"fuelbridge/internal/domain/proration"
	"fuelbridge/internal/erp"
	"fuelbridge/internal/infrastructure/http/v1/handlers"
	"fuelbridge/internal/infrastructure/http/v1/middleware"
	"fuelbridge/internal/infrastructure/storage/postgres"
	"fuelbridge/internal/infrastructure/storage/postgres/invoice_repo"
	"fuelbridge/internal/infrastructure/storage/postgres/tank_repo"
	"fuelbridge/pkg/logger"
)

// RouterConfig holds the dependencies the router wires together.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// TxManager manages database transactions.
	TxManager *postgres.TxManager

	// EventLog records reconciliation events.
	EventLog *postgres.EventLog

	// ERPClient is the authenticated Service Layer client shared by all requests.
	ERPClient *erp.Client

	// Logger for request logging.
	Logger *logger.Logger
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

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Repositories and domain services share one wiring for all routes.
	invoiceStore := invoice_repo.NewRepo(cfg.TxManager)
	tankRegistry := tank_repo.NewRepo(cfg.TxManager)
	validator := distribution.NewValidator(tankRegistry)
	engine := proration.NewEngine()
	invoiceService := invoice.NewService(invoiceStore, validator, cfg.TxManager, cfg.EventLog)
	chainService := chain.NewService(cfg.ERPClient, invoiceStore, engine, cfg.EventLog)

	base := handlers.NewBaseHandler()

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		registerInvoiceRoutes(apiV1, base, invoiceService, invoiceStore, cfg.EventLog)
		registerChainRoutes(apiV1, base, chainService)
		registerTankRoutes(apiV1, base, tankRegistry)
		registerReferenceRoutes(apiV1, base, cfg.ERPClient)
	}

	return router
}

func registerInvoiceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, service *invoice.Service, store invoice.Store, eventLog *postgres.EventLog) {
	h := handlers.NewInvoiceHandler(base, service, store, eventLog)

	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Ingest)
		invoices.GET("/:id", h.Get)
		invoices.GET("/:id/events", h.Events)
	}
}

func registerChainRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, service *chain.Service) {
	h := handlers.NewChainHandler(base, service)

	chainGroup := rg.Group("/chain")
	{
		chainGroup.POST("/requests", h.CreateRequest)
		chainGroup.POST("/orders", h.ConvertToOrder)
		chainGroup.PATCH("/orders/lines", h.UpdateOrderLine)
		chainGroup.POST("/drafts", h.ConvertToDraft)
		chainGroup.PATCH("/drafts/costing-codes", h.UpdateCostingCodes)
		chainGroup.POST("/receipts/from-draft", h.PostDraft)
		chainGroup.POST("/receipts/direct", h.DirectReceipt)
	}
}

func registerTankRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, directory handlers.TankDirectory) {
	h := handlers.NewTankHandler(base, directory)

	rg.GET("/tanks", h.List)
}

func registerReferenceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, client *erp.Client) {
	h := handlers.NewReferenceHandler(base, client)

	reference := rg.Group("/reference")
	{
		reference.GET("/items", h.Items)
		reference.GET("/vendors", h.Vendors)
		reference.GET("/warehouses", h.Warehouses)
		reference.GET("/tax-groups", h.TaxGroups)
		reference.GET("/last-request", h.LastRequest)
		reference.GET("/open-orders", h.OpenOrders)
	}
}
