package economy

import (
	"errors"
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

// statusFor maps domain errors to HTTP statuses. Rate violations are 429 so
// clients can back off; gate denials are 403; everything the caller can fix
// is 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrCooldownActive),
		errors.Is(err, services.ErrDailyCapExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrFeatureDisabled),
		errors.Is(err, services.ErrWalletFrozen):
		return http.StatusForbidden
	case errors.Is(err, services.ErrBelowMinimum),
		errors.Is(err, services.ErrAboveMaximum),
		errors.Is(err, services.ErrInvalidRecipient),
		errors.Is(err, services.ErrSelfTip),
		errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotCancellable):
		return http.StatusConflict
	case errors.Is(err, services.ErrGatewayRejected),
		errors.Is(err, services.ErrGatewayNotConfigured):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal error"
	}
	c.JSON(status, utils.NewErrorResponse(status, message))
}

func currentUser(c *gin.Context) (models.User, bool) {
	userRaw, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return models.User{}, false
	}
	u, ok := userRaw.(models.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return models.User{}, false
	}
	return u, true
}

// Tip godoc
// @Summary Tip another user
// @Description Send DGT to another user. A configured percentage is burned.
// @Tags economy
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body TipRequest true "Tip Input"
// @Success 200 {object} utils.Response{data=TransferResponse}
// @Failure 400 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 429 {object} utils.Response
// @Router /economy/tip [post]
func (h *Handler) Tip(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}

	var req TipRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	source := req.Source
	if source == "" {
		source = "tip"
	}

	result, err := h.Econ.Tip(u.ID, req.ToUserID, req.Amount, source)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Tip sent successfully", transferResponse(result)))
}

// Rain godoc
// @Summary Rain DGT on multiple users
// @Description Split an amount equally across recipients; the integer remainder is burned
// @Tags economy
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body RainRequest true "Rain Input"
// @Success 200 {object} utils.Response{data=TransferResponse}
// @Failure 400 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 429 {object} utils.Response
// @Router /economy/rain [post]
func (h *Handler) Rain(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}

	var req RainRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	source := req.Source
	if source == "" {
		source = "rain"
	}

	result, err := h.Econ.Rain(u.ID, req.Amount, req.RecipientIDs, source)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Rain sent successfully", transferResponse(result)))
}

// Deposit godoc
// @Summary Initiate a deposit
// @Description Start watching for an inbound crypto deposit. The wallet is credited when the gateway confirms.
// @Tags economy
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body DepositRequest true "Deposit Input"
// @Success 202 {object} utils.Response{data=ExternalTransactionResponse}
// @Failure 400 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Router /economy/deposit [post]
func (h *Handler) Deposit(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}

	var req DepositRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tx, err := h.Econ.InitiateDeposit(u.ID, req.ExpectedAmount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, utils.NewSuccessResponse("Deposit initiated", externalResponse(tx)))
}

// Withdraw godoc
// @Summary Initiate a withdrawal
// @Description Convert DGT to USD at the peg rate and send it through the settlement gateway
// @Tags economy
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body WithdrawRequest true "Withdraw Input"
// @Success 202 {object} utils.Response{data=ExternalTransactionResponse}
// @Failure 400 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 429 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Router /economy/withdraw [post]
func (h *Handler) Withdraw(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}

	var req WithdrawRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tx, err := h.Econ.Withdraw(u.ID, req.AmountUSDCents, req.Destination)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, utils.NewSuccessResponse("Withdrawal initiated", externalResponse(tx)))
}

// CancelTransaction godoc
// @Summary Cancel a pending external transaction
// @Description Abort an own deposit or withdrawal that is still awaiting gateway confirmation
// @Tags economy
// @Produce json
// @Security Bearer
// @Param id path int true "Transaction ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /economy/transactions/{id}/cancel [post]
func (h *Handler) CancelTransaction(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}

	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid transaction ID"))
		return
	}

	if err := h.Econ.CancelPending(uint(id), u.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Transaction cancelled", nil))
}

func transferResponse(r *services.TransferResult) TransferResponse {
	return TransferResponse{
		GroupID:      r.GroupID,
		NewBalance:   r.NewBalance,
		BurnAmount:   r.BurnAmount,
		PerRecipient: r.PerRecipient,
		Recipients:   r.Recipients,
	}
}

func externalResponse(tx *models.Transaction) ExternalTransactionResponse {
	return ExternalTransactionResponse{
		TransactionID: tx.ID,
		GroupID:       tx.GroupID,
		Status:        string(tx.Status),
		Amount:        tx.Amount,
		Fee:           tx.Fee,
	}
}
