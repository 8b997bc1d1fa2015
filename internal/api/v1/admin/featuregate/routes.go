package featuregate

import (
	fg "degentalk-backend/internal/featuregate"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, evaluator *fg.Evaluator) {
	h := NewHandler(evaluator)

	router.GET("/feature-gates", h.ListGates)
	router.PATCH("/feature-gates/:key", h.UpdateGate)
}
