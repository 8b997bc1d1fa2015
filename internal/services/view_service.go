package services

import (
	"time"

	"degentalk-backend/internal/models"
)

// The view projector turns one canonical wallet/transaction record into the
// shape a given viewer is allowed to see. It is a pure function of
// (record, viewer): it never consults storage or services and never decides
// access. By the time it runs the caller has already established the role.

// AllowanceInfo carries the remaining daily allowances computed by the rate
// guard, passed in by the caller so projection stays pure.
type AllowanceInfo struct {
	TipRemaining      int64 `json:"tip_remaining"`
	RainRemaining     int64 `json:"rain_remaining"`
	WithdrawRemaining int64 `json:"withdraw_remaining"`
}

// WalletDTO is the projected wallet. Public fields are always present;
// owner and admin sections are nil for viewers below that tier.
type WalletDTO struct {
	UserID         uint  `json:"user_id"`
	Level          int   `json:"level"`
	LifetimeEarned int64 `json:"lifetime_earned"`
	LifetimeSpent  int64 `json:"lifetime_spent"`

	Owner *OwnerWalletView `json:"owner,omitempty"`
	Admin *AdminWalletView `json:"admin,omitempty"`
}

type OwnerWalletView struct {
	Balance    int64         `json:"balance"`
	Status     string        `json:"status"`
	Allowances AllowanceInfo `json:"allowances"`
}

type AdminWalletView struct {
	WalletID  uint      `json:"wallet_id"`
	Frozen    bool      `json:"frozen"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionDTO is one projected ledger entry. Internal wallet identifiers
// never leave the owner tier; admin viewers additionally get gateway
// references, failure detail and audit fields.
type TransactionDTO struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Direction string    `json:"direction"`
	Amount    int64     `json:"amount"`
	Fee       int64     `json:"fee,omitempty"`
	Status    string    `json:"status"`

	Admin *AdminTransactionView `json:"admin,omitempty"`
}

type AdminTransactionView struct {
	GroupID              string      `json:"group_id"`
	WalletID             *uint       `json:"wallet_id"`
	CounterpartyWalletID *uint       `json:"counterparty_wallet_id"`
	ExternalRef          string      `json:"external_ref,omitempty"`
	FailReason           string      `json:"fail_reason,omitempty"`
	SettledAt            *time.Time  `json:"settled_at,omitempty"`
	Hash                 string      `json:"hash,omitempty"`
	Metadata             models.JSON `json:"metadata,omitempty"`
	ReviewerID           *uint       `json:"reviewer_id,omitempty"`
}

// ProjectWallet maps a wallet to the DTO for the viewer's tier. Anonymous
// viewers get coarse public stats only: no precise balance, no history.
func ProjectWallet(wallet *models.Wallet, owner *models.User, allowances AllowanceInfo, viewer models.ViewerContext) WalletDTO {
	dto := WalletDTO{
		UserID:         wallet.UserID,
		Level:          owner.Level,
		LifetimeEarned: wallet.LifetimeEarned,
		LifetimeSpent:  wallet.LifetimeSpent,
	}

	if viewer.IsOwner || viewer.IsAdmin {
		dto.Owner = &OwnerWalletView{
			Balance:    wallet.Balance,
			Status:     string(wallet.Status),
			Allowances: allowances,
		}
	}

	if viewer.IsAdmin {
		dto.Admin = &AdminWalletView{
			WalletID:  wallet.ID,
			Frozen:    wallet.IsFrozen(),
			Version:   wallet.Version,
			CreatedAt: wallet.CreatedAt,
			UpdatedAt: wallet.UpdatedAt,
		}
	}

	return dto
}

// ProjectTransactions sanitizes a transaction page for the viewer. Callers
// must not pass history to anonymous viewers at all; this function projects
// owner shape for owners and the full audit shape for admins.
func ProjectTransactions(txs []models.Transaction, viewer models.ViewerContext) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for i := range txs {
		out = append(out, projectTransaction(&txs[i], viewer))
	}
	return out
}

func projectTransaction(t *models.Transaction, viewer models.ViewerContext) TransactionDTO {
	direction := "credit"
	if t.Amount < 0 {
		direction = "debit"
	}

	dto := TransactionDTO{
		ID:        t.ID,
		CreatedAt: t.CreatedAt,
		Type:      string(t.Type),
		Category:  categorize(t),
		Direction: direction,
		Amount:    t.Amount,
		Fee:       t.Fee,
		Status:    string(t.Status),
	}

	if viewer.IsAdmin {
		dto.Admin = &AdminTransactionView{
			GroupID:              t.GroupID,
			WalletID:             t.WalletID,
			CounterpartyWalletID: t.CounterpartyWalletID,
			ExternalRef:          t.ExternalRef,
			FailReason:           t.FailReason,
			SettledAt:            t.SettledAt,
			Hash:                 t.Hash,
			Metadata:             t.Metadata,
			ReviewerID:           reviewerID(t),
		}
	}

	return dto
}

// categorize produces the human-readable source shown instead of internal
// identifiers in the owner view.
func categorize(t *models.Transaction) string {
	if source, ok := t.Metadata[models.MetaSourceFeature].(string); ok && source != "" {
		return source
	}
	switch t.Type {
	case models.TransactionTypeAdjustment:
		return "admin adjustment"
	case models.TransactionTypeBurn:
		return "burn"
	default:
		return string(t.Type)
	}
}

func reviewerID(t *models.Transaction) *uint {
	if raw, ok := t.Metadata[models.MetaReviewerID].(float64); ok {
		id := uint(raw)
		return &id
	}
	return nil
}
