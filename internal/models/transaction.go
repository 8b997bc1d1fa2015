package models

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type TransactionType string

const (
	TransactionTypeTip          TransactionType = "tip"
	TransactionTypeRain         TransactionType = "rain"
	TransactionTypeDeposit      TransactionType = "deposit"
	TransactionTypeWithdrawal   TransactionType = "withdrawal"
	TransactionTypeShopPurchase TransactionType = "shop_purchase"
	TransactionTypeFee          TransactionType = "fee"
	TransactionTypeBurn         TransactionType = "burn"
	TransactionTypeAdjustment   TransactionType = "adjustment"
)

type TransactionStatus string

const (
	TransactionStatusPending          TransactionStatus = "pending"
	TransactionStatusAwaitingExternal TransactionStatus = "awaiting_external"
	TransactionStatusSettled          TransactionStatus = "settled"
	TransactionStatusFailed           TransactionStatus = "failed"
)

// IsTerminal reports whether a status can never change again. A settled
// transaction is only ever corrected by a new compensating adjustment row,
// never by editing this one.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSettled || s == TransactionStatusFailed
}

// Metadata keys understood by the ledger and the view projector.
const (
	MetaSourceFeature  = "source"
	MetaReversalOf     = "reversal_of"
	MetaReviewerID     = "reviewer_id"
	MetaReversalReason = "reversal_reason"
)

// Transaction is an immutable record of a single balance-affecting event.
// Amount is signed (debits negative) and in DGT minor units; Fee is a
// non-negative extra debit resolved by the economy engine before the row is
// created. WalletID is nil for burn legs, which remove value from the supply
// without crediting anyone.
type Transaction struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"precision:3"` // Millisecond precision
	// GroupID ties together the legs of a compound operation (tip debit,
	// credit and burn share one group) so they settle or fail as a unit.
	GroupID              string            `gorm:"type:varchar(36);index;not null"`
	WalletID             *uint             `gorm:"index"`
	CounterpartyWalletID *uint             `gorm:"index"`
	Type                 TransactionType   `gorm:"type:varchar(50);index;not null"`
	Amount               int64             `gorm:"not null"`
	Fee                  int64             `gorm:"not null;default:0"`
	Status               TransactionStatus `gorm:"type:varchar(30);index;not null;default:'pending'"`
	SettledAt            *time.Time
	FailReason           string `gorm:"type:text"`
	ExternalRef          string `gorm:"type:varchar(128);index"` // settlement gateway tx id
	Metadata             JSON   `gorm:"type:json"`
	Hash                 string `gorm:"type:varchar(64);default:''"` // HMAC SHA256
}

// GenerateHash generates a tamper-proof hash for a settled transaction.
func (t *Transaction) GenerateHash(secret string) string {
	var walletID, counterpartyID uint
	if t.WalletID != nil {
		walletID = *t.WalletID
	}
	if t.CounterpartyWalletID != nil {
		counterpartyID = *t.CounterpartyWalletID
	}

	data := fmt.Sprintf("%s|%d|%d|%d|%d|%d|%s|%s|%s",
		t.GroupID, walletID, counterpartyID, t.CreatedAt.UnixNano(),
		t.Amount, t.Fee, t.Type, t.Status, t.ExternalRef)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
