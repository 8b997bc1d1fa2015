package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"degentalk-backend/internal/database"
	"degentalk-backend/internal/models"
)

// TransactionFilter defines criteria for filtering ledger entries
type TransactionFilter struct {
	WalletID  *uint
	UserID    *uint
	Type      *models.TransactionType
	Status    *models.TransactionStatus
	StartTime *time.Time
	EndTime   *time.Time
	MinAmount *int64
	MaxAmount *int64
	Page      int
	Limit     int
}

// FindTransactions retrieves a paginated list of transactions with filtering.
// Time-range queries double as the audit fallback for daily-cap computation.
func FindTransactions(filter TransactionFilter) ([]models.Transaction, int64, error) {
	var transactions []models.Transaction
	var total int64

	query := database.DB.Model(&models.Transaction{})

	if filter.UserID != nil {
		query = query.Joins("JOIN wallets ON wallets.id = transactions.wallet_id").
			Where("wallets.user_id = ?", *filter.UserID)
	}
	if filter.WalletID != nil {
		query = query.Where("transactions.wallet_id = ?", *filter.WalletID)
	}
	if filter.Type != nil {
		query = query.Where("transactions.type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("transactions.status = ?", *filter.Status)
	}
	if filter.StartTime != nil {
		query = query.Where("transactions.created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("transactions.created_at <= ?", *filter.EndTime)
	}
	if filter.MinAmount != nil {
		query = query.Where("transactions.amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("transactions.amount <= ?", *filter.MaxAmount)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("transactions.created_at desc").
		Limit(filter.Limit).Offset(offset).Find(&transactions).Error; err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// GenerateTransactionCSV generates a CSV export for the admin audit view
func GenerateTransactionCSV(transactions []models.Transaction) ([]byte, error) {
	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{
		"ID", "Time", "Group", "Wallet ID", "Type", "Status",
		"Amount", "Fee", "External Ref", "Fail Reason", "Hash",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, t := range transactions {
		walletID := ""
		if t.WalletID != nil {
			walletID = fmt.Sprintf("%d", *t.WalletID)
		}
		record := []string{
			fmt.Sprintf("%d", t.ID),
			t.CreatedAt.Format(time.RFC3339Nano),
			t.GroupID,
			walletID,
			string(t.Type),
			string(t.Status),
			fmt.Sprintf("%d", t.Amount),
			fmt.Sprintf("%d", t.Fee),
			t.ExternalRef,
			t.FailReason,
			t.Hash,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}
