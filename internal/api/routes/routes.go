package routes

import (
	"bank-api/internal/api/handlers"
	"bank-api/internal/api/middleware"
	"bank-api/internal/config"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every handler onto router using deps, gated by
// the CORS, rate-limit, request-id, and metrics middleware.
func RegisterRoutes(router *gin.Engine, cfg *config.Config, deps handlers.Dependencies) {
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimit(cfg))
	router.Use(middleware.PrometheusMiddleware())

	router.GET("/health", handlers.MakeHealthHandler(deps))
	router.GET("/accounts/:id/balance", handlers.MakeGetBalanceHandler(deps))
	router.POST("/accounts/:id/deposit", handlers.MakeDepositHandler(deps))
	router.POST("/accounts/:id/withdraw", handlers.MakeWithdrawHandler(deps))
	router.POST("/accounts/:id/card-transactions", handlers.MakeCardTransactionHandler(deps))
	router.POST("/accounts/:id/refunds", handlers.MakeRefundHandler(deps))
	router.POST("/accounts/:id/exchange", handlers.MakeExchangeHandler(deps))
	router.POST("/accounts/:id/transfer", handlers.MakeTransferHandler(deps))
	router.GET("/accounts/:id/operations", handlers.MakeListOperationsHandler(deps))
	router.GET("/accounts/:id/operations/:operationID", handlers.MakeGetOperationHandler(deps))

	router.GET("/rates", handlers.MakeRatesHandler(deps))
	router.GET("/metrics", handlers.MakeMetricsHandler(deps))
	router.GET("/prometheus", handlers.PrometheusMetrics(deps))
	router.GET("/events", handlers.Events)
}
