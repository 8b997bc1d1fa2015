package economy

type TipRequest struct {
	ToUserID uint   `json:"to_user_id" binding:"required"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Source   string `json:"source" binding:"omitempty,max=64"`
}

type RainRequest struct {
	Amount       int64  `json:"amount" binding:"required,gt=0"`
	RecipientIDs []uint `json:"recipient_ids" binding:"required,min=1"`
	Source       string `json:"source" binding:"omitempty,max=64"`
}

type TransferResponse struct {
	GroupID      string `json:"group_id"`
	NewBalance   int64  `json:"new_balance"`
	BurnAmount   int64  `json:"burn_amount"`
	PerRecipient int64  `json:"per_recipient"`
	Recipients   []uint `json:"recipients"`
}

type DepositRequest struct {
	ExpectedAmount int64 `json:"expected_amount" binding:"required,gt=0"`
}

type WithdrawRequest struct {
	AmountUSDCents int64  `json:"amount_usd_cents" binding:"required,gt=0"`
	Destination    string `json:"destination" binding:"required"`
}

type ExternalTransactionResponse struct {
	TransactionID uint   `json:"transaction_id"`
	GroupID       string `json:"group_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee,omitempty"`
}
