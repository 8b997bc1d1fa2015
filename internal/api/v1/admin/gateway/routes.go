package gateway

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup) {
	h := NewHandler()

	group := r.Group("/gateway")
	{
		group.GET("/config", h.ListGatewayConfigs)
		group.POST("/config", h.CreateGatewayConfig)
		group.PUT("/config/:id", h.UpdateGatewayConfig)
	}
}
