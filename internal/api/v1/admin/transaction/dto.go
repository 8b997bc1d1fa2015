package transaction

import "degentalk-backend/internal/services"

type TransactionListResponse struct {
	Transactions []services.TransactionDTO `json:"transactions"`
	Total        int64                     `json:"total"`
	Page         int                       `json:"page"`
	Limit        int                       `json:"limit"`
}

type ReverseRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

type ReverseResponse struct {
	AdjustmentID uint   `json:"adjustment_id"`
	GroupID      string `json:"group_id"`
	Amount       int64  `json:"amount"`
}
