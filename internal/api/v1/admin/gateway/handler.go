package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"degentalk-backend/internal/services"
	"degentalk-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// ListGatewayConfigs returns all settlement gateway configurations
func (h *Handler) ListGatewayConfigs(c *gin.Context) {
	configs, err := services.GetGatewayConfigs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	var response []GatewayConfigResponse
	for _, cfg := range configs {
		var configMap map[string]interface{}
		_ = json.Unmarshal(cfg.Config, &configMap)

		response = append(response, GatewayConfigResponse{
			ID:        cfg.ID,
			UUID:      cfg.UUID,
			Name:      cfg.Name,
			Driver:    cfg.Driver,
			Config:    configMap,
			Enable:    cfg.Enable,
			CreatedAt: cfg.CreatedAt.Format(time.RFC3339),
			UpdatedAt: cfg.UpdatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", response))
}

// CreateGatewayConfig creates a new settlement gateway configuration
func (h *Handler) CreateGatewayConfig(c *gin.Context) {
	var req CreateGatewayConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	cfg, err := services.CreateGatewayConfig(req.Name, req.Driver, req.Config, req.Enable)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", gin.H{"id": cfg.ID, "uuid": cfg.UUID}))
}

// UpdateGatewayConfig updates an existing settlement gateway configuration
func (h *Handler) UpdateGatewayConfig(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid ID"))
		return
	}

	var req UpdateGatewayConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	_, err = services.UpdateGatewayConfig(uint(id), req.Name, req.Config, req.Enable)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", nil))
}
