package api

import (
	"degentalk-backend/config"
	adminFeaturegate "degentalk-backend/internal/api/v1/admin/featuregate"
	adminGateway "degentalk-backend/internal/api/v1/admin/gateway"
	adminTransaction "degentalk-backend/internal/api/v1/admin/transaction"
	adminUser "degentalk-backend/internal/api/v1/admin/user"
	adminWallet "degentalk-backend/internal/api/v1/admin/wallet"
	"degentalk-backend/internal/api/v1/auth"
	"degentalk-backend/internal/api/v1/economy"
	gatewayRoutes "degentalk-backend/internal/api/v1/gateway"
	userRoutes "degentalk-backend/internal/api/v1/user"
	walletRoutes "degentalk-backend/internal/api/v1/wallet"
	"degentalk-backend/internal/database"
	"degentalk-backend/internal/middleware"
	"degentalk-backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the whole engine together: storage, the economy service
// graph and every route group. The economy service is returned so main can
// hand it to the settlement watcher.
func NewRouter() (*gin.Engine, *services.EconomyService, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	_, err = database.Connect(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	err = database.ConnectRedis(cfg)
	if err != nil {
		return nil, nil, err
	}

	econ, evaluator, err := buildEconomy(cfg)
	if err != nil {
		return nil, nil, err
	}

	router := gin.Default()

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Transport-level throttle for the money-moving endpoints.
	limiter := middleware.NewRateLimiter(5, 10)

	// API v1
	v1 := router.Group("/api/v1")
	{
		auth.RegisterRoutes(v1)
		gatewayRoutes.RegisterRoutes(v1, econ)
		walletRoutes.RegisterRoutes(v1, econ)
		economy.RegisterRoutes(v1, econ, limiter)

		authorized := v1.Group("/")
		authorized.Use(middleware.AuthMiddleware())
		{
			userRoutes.RegisterRoutes(authorized)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			adminUser.RegisterRoutes(admin)
			adminWallet.RegisterRoutes(admin)
			adminTransaction.RegisterRoutes(admin, econ)
			adminFeaturegate.RegisterRoutes(admin, evaluator)
			adminGateway.RegisterRoutes(admin)
		}
	}

	return router, econ, nil
}
