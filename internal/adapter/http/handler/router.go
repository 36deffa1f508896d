package handler

import (
	"stokvel-ledger/internal/adapter/http/middleware"
	"stokvel-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	ClaimSvc       ports.ClaimService
	Currency       string
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(2 << 20)) // 2 MB, claims carry base64 documents

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// All API routes trust the gateway-injected identity headers.
	userAuth := middleware.UserAuth(deps.Logger)
	v1 := r.Group("/api/v1", userAuth)

	walletHandler := NewWalletHandler(deps.LedgerSvc, deps.Currency)
	wallet := v1.Group("/wallet")
	{
		wallet.GET("/balance", walletHandler.GetBalance)
		wallet.POST("/deposit", walletHandler.Deposit)
		wallet.POST("/withdraw", walletHandler.Withdraw)
		wallet.POST("/transfer", walletHandler.Transfer)
		wallet.GET("/transactions", walletHandler.ListTransactions)
		wallet.GET("/transactions/:reference", walletHandler.GetTransaction)
	}

	groupHandler := NewGroupHandler(deps.LedgerSvc, deps.Currency)
	groups := v1.Group("/groups")
	{
		groups.POST("/:id/contributions", groupHandler.Contribute)
		groups.GET("/:id/contributions", groupHandler.ListContributions)
	}

	claimHandler := NewClaimHandler(deps.ClaimSvc, deps.Currency)
	claims := v1.Group("/claims")
	{
		claims.POST("", claimHandler.Submit)
		claims.GET("", claimHandler.List)
		claims.GET("/:id", claimHandler.Get)
		claims.POST("/:id/decision", middleware.RequireAdmin(), claimHandler.Decide)
	}

	return r
}
