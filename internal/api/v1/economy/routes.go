package economy

import (
	"degentalk-backend/internal/middleware"
	"degentalk-backend/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, econ *services.EconomyService, limiter *middleware.RateLimiter) {
	h := NewHandler(econ)

	group := r.Group("/economy")
	group.Use(middleware.AuthMiddleware())
	if limiter != nil {
		group.Use(limiter.Handler())
	}
	{
		group.POST("/tip", h.Tip)
		group.POST("/rain", h.Rain)
		group.POST("/deposit", h.Deposit)
		group.POST("/withdraw", h.Withdraw)
		group.POST("/transactions/:id/cancel", h.CancelTransaction)
	}
}
