package wallet

import (
	"degentalk-backend/internal/middleware"
	"degentalk-backend/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, econ *services.EconomyService) {
	h := NewHandler(econ)

	// Public profile wallet; the projection tier is decided per viewer.
	r.GET("/users/:id/wallet", middleware.OptionalAuthMiddleware(), h.GetUserWallet)

	owned := r.Group("/wallet")
	owned.Use(middleware.AuthMiddleware())
	{
		owned.GET("", h.GetOwnWallet)
		owned.GET("/transactions", h.ListOwnTransactions)
	}
}
