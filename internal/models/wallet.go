package models

import "time"

type WalletStatus string

const (
	WalletStatusActive WalletStatus = "active"
	WalletStatusFrozen WalletStatus = "frozen"
)

// Wallet is the single balance record for a user. Balance is in DGT minor
// units and is only ever adjusted by the ledger service as a side effect of
// settling a Transaction; nothing else writes it. Wallets are created lazily
// on first economic interaction and never deleted, only frozen.
type Wallet struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint         `gorm:"uniqueIndex;not null"`
	Balance   int64        `gorm:"not null;default:0"`
	Status    WalletStatus `gorm:"type:varchar(20);not null;default:'active'"`

	// Display counters, maintained alongside the balance at settlement.
	LifetimeEarned int64 `gorm:"not null;default:0"`
	LifetimeSpent  int64 `gorm:"not null;default:0"`

	Version int `gorm:"default:1"`
}

func (w *Wallet) IsFrozen() bool {
	return w.Status == WalletStatusFrozen
}
