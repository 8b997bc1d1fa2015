package transaction

import (
	"degentalk-backend/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, econ *services.EconomyService) {
	h := NewHandler(econ)

	router.GET("/transactions", h.ListTransactions)
	router.GET("/transactions/export", h.ExportTransactions)
	router.POST("/transactions/:id/reverse", h.ReverseTransaction)
}
