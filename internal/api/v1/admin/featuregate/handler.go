package featuregate

import (
	"errors"
	"net/http"

	fg "degentalk-backend/internal/featuregate"
	"degentalk-backend/internal/services"
	"degentalk-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	Evaluator *fg.Evaluator
}

func NewHandler(evaluator *fg.Evaluator) *Handler {
	return &Handler{Evaluator: evaluator}
}

// ListGates godoc
// @Summary List feature gates
// @Description Get all economy feature gates. Admin only.
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response{data=[]GateItem}
// @Failure 500 {object} utils.Response
// @Router /admin/feature-gates [get]
func (h *Handler) ListGates(c *gin.Context) {
	gates, err := services.ListFeatureGates()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch feature gates"))
		return
	}

	var items []GateItem
	for _, g := range gates {
		items = append(items, GateItem{
			Key:            g.Key,
			Enabled:        g.Enabled,
			MinLevel:       g.MinLevel,
			DeveloperOnly:  g.DeveloperOnly,
			RolloutPercent: g.RolloutPercent,
			UpdatedAt:      g.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Feature gates retrieved successfully", items))
}

// UpdateGate godoc
// @Summary Update a feature gate
// @Description Change a gate's enabled flag, level floor, developer restriction or rollout percentage. Takes effect immediately. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param key path string true "Feature key"
// @Param input body UpdateGateRequest true "Gate fields to update"
// @Success 200 {object} utils.Response{data=GateItem}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /admin/feature-gates/{key} [patch]
func (h *Handler) UpdateGate(c *gin.Context) {
	key := c.Param("key")

	var req UpdateGateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	updates := make(map[string]interface{})
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if req.MinLevel != nil {
		updates["min_level"] = *req.MinLevel
	}
	if req.DeveloperOnly != nil {
		updates["developer_only"] = *req.DeveloperOnly
	}
	if req.RolloutPercent != nil {
		updates["rollout_percent"] = *req.RolloutPercent
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "No fields to update"))
		return
	}

	gate, err := services.UpdateFeatureGate(key, updates, h.Evaluator)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Feature gate not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to update feature gate"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Feature gate updated successfully", GateItem{
		Key:            gate.Key,
		Enabled:        gate.Enabled,
		MinLevel:       gate.MinLevel,
		DeveloperOnly:  gate.DeveloperOnly,
		RolloutPercent: gate.RolloutPercent,
		UpdatedAt:      gate.UpdatedAt,
	}))
}
