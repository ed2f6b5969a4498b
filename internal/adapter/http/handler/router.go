package handler

import (
	"ledger-core/internal/adapter/http/middleware"
	"ledger-core/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AccountSvc     ports.AccountService
	BalanceSvc     ports.BalanceService
	LedgerSvc      ports.LedgerService
	ConversionSvc  ports.ConversionService
	ReconSvc       ports.ReconciliationService
	AuditSvc       ports.AuditService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	v1 := r.Group("/api/v1")

	accountHandler := NewAccountHandler(deps.AccountSvc, deps.BalanceSvc)
	accounts := v1.Group("/accounts")
	{
		accounts.POST("", accountHandler.Create)
		accounts.GET("", accountHandler.List)
		accounts.GET("/:id", accountHandler.Get)
		accounts.GET("/:id/balance", accountHandler.GetBalance)
		accounts.PATCH("/:id/status", accountHandler.UpdateStatus)
	}

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc, deps.ConversionSvc)
	entries := v1.Group("/entries")
	{
		entries.POST("", ledgerHandler.PostEntry)
		entries.GET("/:id", ledgerHandler.GetEntry)
		entries.POST("/:id/reverse", ledgerHandler.ReverseEntry)
	}
	v1.POST("/transfers", ledgerHandler.Transfer)

	reconHandler := NewReconciliationHandler(deps.ReconSvc)
	v1.POST("/reconciliation/run", reconHandler.Run)

	auditHandler := NewAuditHandler(deps.AuditSvc)
	audit := v1.Group("/audit")
	{
		audit.GET("/trail", auditHandler.Trail)
		audit.GET("/verify", auditHandler.Verify)
	}

	return r
}
