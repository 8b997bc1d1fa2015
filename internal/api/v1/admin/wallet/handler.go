package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"degentalk-backend/internal/models"
	"degentalk-backend/internal/services"
	"degentalk-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// ListWallets godoc
// @Summary List all wallets
// @Description Get a paginated list of wallets. Admin only.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=WalletListResponse}
// @Failure 400 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/wallets [get]
func ListWallets(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}

	wallets, total, err := services.FindWallets(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch wallets"))
		return
	}

	var items []WalletListItem
	for _, w := range wallets {
		items = append(items, WalletListItem{
			ID:             w.ID,
			UserID:         w.UserID,
			Balance:        w.Balance,
			Status:         string(w.Status),
			LifetimeEarned: w.LifetimeEarned,
			LifetimeSpent:  w.LifetimeSpent,
			Version:        w.Version,
			CreatedAt:      w.CreatedAt,
			UpdatedAt:      w.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Wallets retrieved successfully", WalletListResponse{
		Wallets: items,
		Total:   total,
		Page:    page,
		Limit:   limit,
	}))
}

func setStatus(c *gin.Context, status models.WalletStatus, message string) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid wallet ID"))
		return
	}

	operator := "unknown"
	if userVal, exists := c.Get("user"); exists {
		if u, ok := userVal.(models.User); ok {
			operator = u.Username
		}
	}

	w, err := services.SetWalletStatus(uint(id), status, operator)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWalletNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Wallet not found"))
		case errors.Is(err, services.ErrOptimisticLock):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to update wallet"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(message, gin.H{
		"wallet_id": w.ID,
		"status":    string(w.Status),
	}))
}

// FreezeWallet godoc
// @Summary Freeze a wallet
// @Description Block all settlements against a wallet. Admin only.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param id path int true "Wallet ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /admin/wallets/{id}/freeze [post]
func FreezeWallet(c *gin.Context) {
	setStatus(c, models.WalletStatusFrozen, "Wallet frozen")
}

// UnfreezeWallet godoc
// @Summary Unfreeze a wallet
// @Description Re-enable settlements against a frozen wallet. Admin only.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param id path int true "Wallet ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /admin/wallets/{id}/unfreeze [post]
func UnfreezeWallet(c *gin.Context) {
	setStatus(c, models.WalletStatusActive, "Wallet unfrozen")
}
