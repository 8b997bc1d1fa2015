package gateway

import (
	"net/http"

	"degentalk-backend/internal/services"
	"degentalk-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Econ *services.EconomyService
}

func NewHandler(econ *services.EconomyService) *Handler {
	return &Handler{Econ: econ}
}

// Notify handles the settlement gateway callback. The UUID in the path names
// the gateway config whose secret verifies the signature.
func (h *Handler) Notify(c *gin.Context) {
	uuid := c.Param("uuid")
	if uuid == "" {
		c.String(http.StatusBadRequest, "Missing UUID")
		return
	}

	params := make(map[string]interface{})
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	if c.Request.Method == http.MethodPost {
		c.Request.ParseForm()
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}

	if err := services.HandleGatewayNotify(h.Econ, uuid, params); err != nil {
		logger.Log.Warn("gateway notify rejected",
			zap.String("gateway_uuid", uuid), zap.Error(err))
		c.String(http.StatusBadRequest, "Fail: "+err.Error())
		return
	}

	c.String(http.StatusOK, "success")
}
