package wallet

import "degentalk-backend/internal/services"

type TransactionListResponse struct {
	Transactions []services.TransactionDTO `json:"transactions"`
	Total        int64                     `json:"total"`
	Page         int                       `json:"page"`
	Limit        int                       `json:"limit"`
}
