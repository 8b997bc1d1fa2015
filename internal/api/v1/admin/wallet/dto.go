package wallet

import "time"

type WalletListItem struct {
	ID             uint      `json:"id"`
	UserID         uint      `json:"user_id"`
	Balance        int64     `json:"balance"`
	Status         string    `json:"status"`
	LifetimeEarned int64     `json:"lifetime_earned"`
	LifetimeSpent  int64     `json:"lifetime_spent"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type WalletListResponse struct {
	Wallets []WalletListItem `json:"wallets"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}
