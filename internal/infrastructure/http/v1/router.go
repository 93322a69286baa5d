// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"flowvault/internal/domain/account"
	"flowvault/internal/domain/distribution"
	"flowvault/internal/domain/ledger"
	"flowvault/internal/domain/projection"
	"flowvault/internal/domain/reconciliation"
	"flowvault/internal/domain/transfer"
	"flowvault/internal/infrastructure/http/v1/handlers"
	"flowvault/internal/infrastructure/http/v1/middleware"
	"flowvault/internal/infrastructure/storage/postgres"
	"flowvault/internal/obs"
	"flowvault/pkg/logger"
)

// RouterConfig holds the wired services the router exposes.
type RouterConfig struct {
	Logger *logger.Logger

	// Pool is nil when the server runs on the in-memory store.
	Pool *postgres.Pool

	Registry       *account.Registry
	Ledger         *ledger.Service
	Projector      *projection.Projector
	Engine         *distribution.Engine
	Transfers      *transfer.Service
	Reconciliation *reconciliation.Service
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
	router.Use(middleware.Actor())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	router.GET("/metrics", gin.WrapH(obs.Handler()))

	base := handlers.NewBaseHandler()
	accountHandler := handlers.NewAccountHandler(base, cfg.Registry, cfg.Ledger, cfg.Projector)
	distributionHandler := handlers.NewDistributionHandler(base, cfg.Engine)
	transferHandler := handlers.NewTransferHandler(base, cfg.Transfers)
	corteHandler := handlers.NewCorteHandler(base, cfg.Reconciliation)

	api := router.Group("/api/v1")
	{
		accounts := api.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("", accountHandler.List)
			accounts.GET("/:id", accountHandler.Get)
			accounts.DELETE("/:id", accountHandler.Archive)
			accounts.GET("/by-code/:code", accountHandler.GetByCode)

			accounts.GET("/:id/movements", accountHandler.Movements)
			accounts.GET("/:id/balance", accountHandler.Balance)
			accounts.GET("/:id/turnover", accountHandler.Turnover)
			accounts.POST("/:id/expenses", accountHandler.PostExpense)
			accounts.POST("/:id/incomes", accountHandler.PostIncome)

			accounts.POST("/:id/cortes", corteHandler.Create)
			accounts.GET("/:id/cortes", corteHandler.History)
			accounts.GET("/:id/transfers", transferHandler.ListByAccount)
		}

		distributions := api.Group("/distributions")
		{
			distributions.POST("", distributionHandler.Distribute)
			distributions.POST("/fixed", distributionHandler.DistributeFixed)
			distributions.GET("/:id", distributionHandler.Get)
		}

		transfers := api.Group("/transfers")
		{
			transfers.POST("", transferHandler.Create)
			transfers.GET("/:id", transferHandler.Get)
		}

		cortes := api.Group("/cortes")
		{
			cortes.GET("/:id", corteHandler.Get)
		}
	}

	return router
}
