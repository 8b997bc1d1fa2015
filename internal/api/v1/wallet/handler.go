package wallet

import (
	"net/http"
	"strconv"

	"degentalk-backend/internal/models"
	"degentalk-backend/internal/services"
	"degentalk-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Econ *services.EconomyService
}

func NewHandler(econ *services.EconomyService) *Handler {
	return &Handler{Econ: econ}
}

func (h *Handler) allowances(userID uint) services.AllowanceInfo {
	guard := h.Econ.Guard()
	tip, _ := guard.RemainingAllowance(userID, models.ActionTypeTip)
	rain, _ := guard.RemainingAllowance(userID, models.ActionTypeRain)
	withdraw, _ := guard.RemainingAllowance(userID, models.ActionTypeWithdraw)
	return services.AllowanceInfo{
		TipRemaining:      tip,
		RainRemaining:     rain,
		WithdrawRemaining: withdraw,
	}
}

// GetOwnWallet godoc
// @Summary Get own wallet
// @Description Get the authenticated user's wallet with balance and remaining daily allowances
// @Tags wallet
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.Response{data=services.WalletDTO}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /wallet [get]
func (h *Handler) GetOwnWallet(c *gin.Context) {
	userRaw, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := userRaw.(models.User)

	w, err := h.Econ.Ledger().GetOrCreateWallet(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load wallet"))
		return
	}

	viewer := models.ViewerFor(&u, u.ID)
	dto := services.ProjectWallet(w, &u, h.allowances(u.ID), viewer)
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Wallet retrieved successfully", dto))
}

// GetUserWallet godoc
// @Summary Get a user's wallet
// @Description Get the public wallet projection for any user. Owners and admins see more.
// @Tags wallet
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} utils.Response{data=services.WalletDTO}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /users/{id}/wallet [get]
func (h *Handler) GetUserWallet(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid user ID"))
		return
	}
	ownerID := uint(id)

	owner, err := services.FindUserByID(ownerID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "User not found"))
		return
	}

	w, err := h.Econ.Ledger().GetOrCreateWallet(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load wallet"))
		return
	}

	viewer := models.AnonymousViewer()
	if userRaw, exists := c.Get("user"); exists {
		if u, ok := userRaw.(models.User); ok {
			viewer = models.ViewerFor(&u, ownerID)
		}
	}

	// Allowances are owner-tier data; anonymous viewers never reach them.
	var allowances services.AllowanceInfo
	if viewer.IsOwner || viewer.IsAdmin {
		allowances = h.allowances(ownerID)
	}

	dto := services.ProjectWallet(w, &owner, allowances, viewer)
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Wallet retrieved successfully", dto))
}

// ListOwnTransactions godoc
// @Summary List own transactions
// @Description Get the authenticated user's transaction history
// @Tags wallet
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param type query string false "Filter by transaction type"
// @Success 200 {object} utils.Response{data=TransactionListResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /wallet/transactions [get]
func (h *Handler) ListOwnTransactions(c *gin.Context) {
	userRaw, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	u := userRaw.(models.User)

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}

	userID := u.ID
	filter := services.TransactionFilter{
		UserID: &userID,
		Page:   page,
		Limit:  limit,
	}
	if typeStr, ok := c.GetQuery("type"); ok {
		t := models.TransactionType(typeStr)
		filter.Type = &t
	}

	transactions, total, err := services.FindTransactions(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch transactions"))
		return
	}

	viewer := models.ViewerFor(&u, u.ID)
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transactions retrieved successfully", TransactionListResponse{
		Transactions: services.ProjectTransactions(transactions, viewer),
		Total:        total,
		Page:         page,
		Limit:        limit,
	}))
}
