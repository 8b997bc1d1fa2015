package transaction

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

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

func filterFromQuery(c *gin.Context) (services.TransactionFilter, bool) {
	filter := services.TransactionFilter{Page: 1, Limit: 20}

	if userIDStr, exists := c.GetQuery("user_id"); exists {
		userID, err := strconv.Atoi(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid user_id"))
			return filter, false
		}
		uid := uint(userID)
		filter.UserID = &uid
	}
	if walletIDStr, exists := c.GetQuery("wallet_id"); exists {
		walletID, err := strconv.Atoi(walletIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid wallet_id"))
			return filter, false
		}
		wid := uint(walletID)
		filter.WalletID = &wid
	}
	if typeStr, exists := c.GetQuery("type"); exists {
		t := models.TransactionType(typeStr)
		filter.Type = &t
	}
	if statusStr, exists := c.GetQuery("status"); exists {
		s := models.TransactionStatus(statusStr)
		filter.Status = &s
	}
	if startTimeStr, exists := c.GetQuery("start_time"); exists {
		startTime, err := time.Parse(time.RFC3339, startTimeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid start_time format"))
			return filter, false
		}
		filter.StartTime = &startTime
	}
	if endTimeStr, exists := c.GetQuery("end_time"); exists {
		endTime, err := time.Parse(time.RFC3339, endTimeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid end_time format"))
			return filter, false
		}
		filter.EndTime = &endTime
	}
	if minAmountStr, exists := c.GetQuery("min_amount"); exists {
		minAmount, err := strconv.ParseInt(minAmountStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid min_amount"))
			return filter, false
		}
		filter.MinAmount = &minAmount
	}
	if maxAmountStr, exists := c.GetQuery("max_amount"); exists {
		maxAmount, err := strconv.ParseInt(maxAmountStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid max_amount"))
			return filter, false
		}
		filter.MaxAmount = &maxAmount
	}

	return filter, true
}

// ListTransactions godoc
// @Summary List transactions
// @Description Get a paginated list of ledger entries with filtering. Admin only.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param user_id query int false "Filter by user ID"
// @Param wallet_id query int false "Filter by wallet ID"
// @Param type query string false "Filter by transaction type"
// @Param status query string false "Filter by status"
// @Param start_time query string false "Filter by start time (RFC3339)"
// @Param end_time query string false "Filter by end time (RFC3339)"
// @Param min_amount query int false "Filter by minimum amount"
// @Param max_amount query int false "Filter by maximum amount"
// @Success 200 {object} utils.Response{data=TransactionListResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}

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
	filter.Page = page
	filter.Limit = limit

	transactions, total, err := services.FindTransactions(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch transactions"))
		return
	}

	viewer := models.ViewerContext{IsAdmin: true}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transactions retrieved successfully", TransactionListResponse{
		Transactions: services.ProjectTransactions(transactions, viewer),
		Total:        total,
		Page:         page,
		Limit:        limit,
	}))
}

// ExportTransactions godoc
// @Summary Export transactions
// @Description Export ledger entries to CSV. Admin only.
// @Tags admin
// @Produce text/csv
// @Security Bearer
// @Param user_id query int false "Filter by user ID"
// @Param type query string false "Filter by transaction type"
// @Param status query string false "Filter by status"
// @Param start_time query string false "Filter by start time (RFC3339)"
// @Param end_time query string false "Filter by end time (RFC3339)"
// @Success 200 {string} string "CSV content"
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/transactions/export [get]
func (h *Handler) ExportTransactions(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}
	filter.Page = 1
	filter.Limit = 10000 // Hard limit for safety

	transactions, _, err := services.FindTransactions(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch transactions"))
		return
	}

	csvContent, err := services.GenerateTransactionCSV(transactions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to generate CSV"))
		return
	}

	filename := fmt.Sprintf("transactions_%s.csv", time.Now().Format("20060102150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", csvContent)
}

// ReverseTransaction godoc
// @Summary Reverse a settled transaction
// @Description Create a compensating adjustment for a settled transaction. The original is never modified. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Transaction ID"
// @Param input body ReverseRequest true "Reversal reason"
// @Success 200 {object} utils.Response{data=ReverseResponse}
// @Failure 400 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /admin/transactions/{id}/reverse [post]
func (h *Handler) ReverseTransaction(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid transaction ID"))
		return
	}

	var req ReverseRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	adminID := uint(0)
	if userVal, exists := c.Get("user"); exists {
		if u, ok := userVal.(models.User); ok {
			adminID = u.ID
		}
	}

	adjustment, err := h.Econ.ReverseTransaction(uint(id), adminID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Transaction not found"))
		case errors.Is(err, services.ErrNotSettled):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to reverse transaction"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transaction reversed", ReverseResponse{
		AdjustmentID: adjustment.ID,
		GroupID:      adjustment.GroupID,
		Amount:       adjustment.Amount,
	}))
}
