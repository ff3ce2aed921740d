package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/api/handlers"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/api/middleware"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/gas"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/pricing"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/store"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/infrastructure/config"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/session"
)

// SetupRoutes configures all application routes
func SetupRoutes(cfg *config.Config, sessions *session.Manager, st *store.Store, prices *pricing.Cache, estimator *gas.Estimator, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	coreHandlers := handlers.NewCoreHandlers(sessions, st, prices, estimator, logger)

	router.GET("/health", coreHandlers.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/session", coreHandlers.BeginSession)
		v1.DELETE("/session", coreHandlers.EndSession)

		v1.GET("/wallets", coreHandlers.ListWallets)
		v1.POST("/wallets", coreHandlers.CreateWallet)
		v1.GET("/wallets/:network/balance", coreHandlers.GetBalance)
		v1.PUT("/wallets/selected", coreHandlers.SelectWallet)

		v1.POST("/transactions", coreHandlers.SubmitTransaction)
		v1.GET("/transactions", coreHandlers.ListTransactions)

		v1.GET("/estimate", coreHandlers.EstimateFee)
		v1.GET("/prices", coreHandlers.GetPrices)
		v1.GET("/events", coreHandlers.StreamEvents)
	}

	return router
}
