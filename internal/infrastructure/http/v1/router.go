// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quimstock/internal/core/entity"
	"quimstock/internal/domain/auth"
	"quimstock/internal/domain/formula"
	"quimstock/internal/domain/items"
	"quimstock/internal/domain/ledger"
	"quimstock/internal/domain/production"
	"quimstock/internal/infrastructure/http/v1/handlers"
	"quimstock/internal/infrastructure/http/v1/middleware"
	"quimstock/internal/infrastructure/storage/postgres"
	"quimstock/pkg/logger"
)

// RouterConfig holds everything the router needs to wire the API.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication and user management endpoints
	AuthService *auth.Service

	// ItemsService manages the material and reagent catalogs
	ItemsService *items.Service

	// LedgerService records stock movements
	LedgerService *ledger.Service

	// FormulaService manages reagent formulas
	FormulaService *formula.Service

	// Engine runs production and feasibility consults
	Engine *production.Engine

	// Audit records entity change history
	Audit *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Prometheus metrics (no auth required)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		registerAuthRoutes(apiV1, cfg)

		// Everything else requires a valid JWT.
		protected := apiV1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerUserRoutes(protected, cfg)
		registerAreaRoutes(protected, cfg)
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	authHandler := handlers.NewAuthHandler(cfg.AuthService)

	// Public auth endpoints (no JWT required)
	publicAuth := rg.Group("/auth")
	{
		publicAuth.POST("/login", authHandler.Login)
		publicAuth.POST("/refresh", authHandler.Refresh)
	}

	// Protected auth endpoints (JWT required)
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))
	{
		protectedAuth.POST("/logout", authHandler.Logout)
		protectedAuth.GET("/me", authHandler.Me)
		protectedAuth.PUT("/me", authHandler.UpdateAccount)
		protectedAuth.PUT("/password", authHandler.ChangePassword)
	}
}

// registerUserRoutes registers user management endpoints.
func registerUserRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	authHandler := handlers.NewAuthHandler(cfg.AuthService)

	users := rg.Group("/users")
	{
		users.POST("", authHandler.Register)
		users.GET("", authHandler.ListUsers)
		users.PUT("/:id/areas", authHandler.SetAreas)
	}
}

// registerAreaRoutes registers the per-area inventory endpoints.
// Every route below runs behind the Area middleware, which resolves
// the :area segment and checks it against the user's scope.
func registerAreaRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	materialHandler := handlers.NewItemHandler(cfg.ItemsService, cfg.Audit, entity.KindMaterial)
	reagentHandler := handlers.NewItemHandler(cfg.ItemsService, cfg.Audit, entity.KindReagent)
	movementHandler := handlers.NewMovementHandler(cfg.LedgerService, cfg.ItemsService)
	formulaHandler := handlers.NewFormulaHandler(cfg.FormulaService, cfg.ItemsService, cfg.Audit)
	productionHandler := handlers.NewProductionHandler(cfg.Engine, cfg.ItemsService, cfg.Audit)
	reportHandler := handlers.NewReportHandler(cfg.ItemsService, cfg.LedgerService)

	// Combined register across all areas the user is scoped to.
	rg.GET("/movements", movementHandler.History)

	area := rg.Group("/:area")
	area.Use(middleware.Area())

	registerItemRoutes(area.Group("/materials"), materialHandler, movementHandler, entity.KindMaterial)
	registerItemRoutes(area.Group("/reagents"), reagentHandler, movementHandler, entity.KindReagent)

	// Formulas hang off the reagent they belong to.
	reagents := area.Group("/reagents/:id")
	{
		reagents.GET("/formula", formulaHandler.Get)
		reagents.POST("/formula", formulaHandler.Create)
		reagents.PUT("/formula/ratios", formulaHandler.SetRatios)
		reagents.DELETE("/formula", formulaHandler.Delete)

		reagents.POST("/production", productionHandler.Produce)
		reagents.GET("/production", productionHandler.Consult)
	}

	area.GET("/movements", movementHandler.AreaHistory)
	area.GET("/low-stock", movementHandler.LowStock)
	area.GET("/reports/stock", reportHandler.StockReport)
}

// registerItemRoutes mounts the shared catalog surface for one item kind.
func registerItemRoutes(rg *gin.RouterGroup, h *handlers.ItemHandler, mh *handlers.MovementHandler, kind entity.ItemKind) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)

	rg.POST("/:id/entries", mh.Entry(kind))
	rg.POST("/:id/exits", mh.Exit(kind))
	rg.GET("/:id/movements", mh.ItemHistory(kind))
	rg.GET("/:id/audit", h.AuditHistory)
}
