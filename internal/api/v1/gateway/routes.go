package gateway

import (
	"degentalk-backend/internal/services"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, econ *services.EconomyService) {
	h := NewHandler(econ)

	// Public callback route, authenticated by signature only.
	r.Any("/gateway/notify/:uuid", h.Notify)
}
