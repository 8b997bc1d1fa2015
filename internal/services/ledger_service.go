package services

import (
	"errors"
	"time"

	"degentalk-backend/internal/database"
	"degentalk-backend/internal/models"
	"degentalk-backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerService is the sole writer of wallet balances. Every balance change
// goes through settlement of a Transaction row; the invariant is that a
// wallet's balance equals the signed sum of amounts and fees of its settled
// transactions. Fees and burns arrive here as already-resolved integers; the
// ledger never does percentage math.
type LedgerService struct {
	hashSecret string
	retries    int
}

func NewLedgerService(hashSecret string, retries int) *LedgerService {
	if retries < 1 {
		retries = 1
	}
	return &LedgerService{hashSecret: hashSecret, retries: retries}
}

// GetOrCreateWallet returns the wallet for a user, creating a zero-balance
// one on first economic interaction. The unique index on user_id makes the
// create race-safe; on conflict we re-read the winner's row.
func (s *LedgerService) GetOrCreateWallet(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := database.DB.Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = models.Wallet{UserID: userID, Status: models.WalletStatusActive, Version: 1}
	if err := database.DB.Create(&wallet).Error; err != nil {
		// Lost the creation race; the row exists now.
		var existing models.Wallet
		if err2 := database.DB.Where("user_id = ?", userID).First(&existing).Error; err2 == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// AppendParams describes one pending ledger entry. Amount is signed; Fee is
// a non-negative extra debit applied to the same wallet at settlement.
type AppendParams struct {
	GroupID              string
	WalletID             *uint
	CounterpartyWalletID *uint
	Type                 models.TransactionType
	Amount               int64
	Fee                  int64
	Status               models.TransactionStatus // defaults to pending
	ExternalRef          string
	Metadata             models.JSON
}

// AppendTransaction creates a transaction without touching any balance.
func (s *LedgerService) AppendTransaction(p AppendParams) (*models.Transaction, error) {
	if p.GroupID == "" {
		p.GroupID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = models.TransactionStatusPending
	}
	if p.Status.IsTerminal() {
		return nil, errors.New("cannot append a transaction in a terminal state")
	}

	tx := models.Transaction{
		GroupID:              p.GroupID,
		WalletID:             p.WalletID,
		CounterpartyWalletID: p.CounterpartyWalletID,
		Type:                 p.Type,
		Amount:               p.Amount,
		Fee:                  p.Fee,
		Status:               p.Status,
		ExternalRef:          p.ExternalRef,
		Metadata:             p.Metadata,
		CreatedAt:            time.Now(),
	}
	if err := database.DB.Create(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// Settle settles a single transaction.
func (s *LedgerService) Settle(txID uint) error {
	var tx models.Transaction
	if err := database.DB.First(&tx, txID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}
	return s.settleIDs([]uint{txID})
}

// SettleGroup settles every transaction sharing a group id as one atomic
// unit: either all legs apply or none do.
func (s *LedgerService) SettleGroup(groupID string) error {
	var ids []uint
	if err := database.DB.Model(&models.Transaction{}).
		Where("group_id = ?", groupID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return ErrTransactionNotFound
	}
	return s.settleIDs(ids)
}

// errConflict signals an optimistic-lock miss; the whole settlement is
// retried a bounded number of times before giving up.
var errConflict = errors.New("concurrent wallet modification")

func (s *LedgerService) settleIDs(ids []uint) error {
	var err error
	for attempt := 0; attempt < s.retries; attempt++ {
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			return s.settleOnce(tx, ids)
		})
		if !errors.Is(err, errConflict) {
			return err
		}
	}
	logger.Log.Warn("settlement retries exhausted",
		zap.Uints("transaction_ids", ids), zap.Error(err))
	return ErrTransactionFailed
}

func (s *LedgerService) settleOnce(tx *gorm.DB, ids []uint) error {
	var txs []models.Transaction
	if err := tx.Where("id IN ?", ids).Order("id asc").Find(&txs).Error; err != nil {
		return err
	}
	if len(txs) != len(ids) {
		return ErrTransactionNotFound
	}

	// Re-check status under the transaction: only pending and
	// awaiting_external rows may settle.
	for i := range txs {
		if txs[i].Status.IsTerminal() {
			return ErrNotSettleable
		}
	}

	// Net effect per wallet. Fee always worsens the wallet's position.
	deltas := make(map[uint]int64)
	earned := make(map[uint]int64)
	spent := make(map[uint]int64)
	for i := range txs {
		if txs[i].WalletID == nil {
			continue // burn legs affect no wallet
		}
		id := *txs[i].WalletID
		delta := txs[i].Amount - txs[i].Fee
		deltas[id] += delta
		if delta > 0 {
			earned[id] += delta
		} else {
			spent[id] += -delta
		}
	}

	// Apply wallet updates in ascending id order so concurrent groups
	// touching the same wallets cannot deadlock.
	walletIDs := make([]uint, 0, len(deltas))
	for id := range deltas {
		walletIDs = append(walletIDs, id)
	}
	for i := 0; i < len(walletIDs); i++ {
		for j := i + 1; j < len(walletIDs); j++ {
			if walletIDs[j] < walletIDs[i] {
				walletIDs[i], walletIDs[j] = walletIDs[j], walletIDs[i]
			}
		}
	}

	for _, walletID := range walletIDs {
		var wallet models.Wallet
		if err := tx.First(&wallet, walletID).Error; err != nil {
			return err
		}
		if wallet.IsFrozen() {
			return ErrWalletFrozen
		}

		newBalance := wallet.Balance + deltas[walletID]
		if newBalance < 0 {
			return ErrInsufficientBalance
		}

		result := tx.Model(&models.Wallet{}).
			Where("id = ? AND version = ?", wallet.ID, wallet.Version).
			Updates(map[string]interface{}{
				"balance":         newBalance,
				"lifetime_earned": wallet.LifetimeEarned + earned[walletID],
				"lifetime_spent":  wallet.LifetimeSpent + spent[walletID],
				"version":         wallet.Version + 1,
				"updated_at":      time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errConflict
		}
	}

	now := time.Now()
	for i := range txs {
		txs[i].Status = models.TransactionStatusSettled
		txs[i].SettledAt = &now
		txs[i].Hash = txs[i].GenerateHash(s.hashSecret)
		if err := tx.Model(&models.Transaction{}).Where("id = ?", txs[i].ID).
			Updates(map[string]interface{}{
				"status":     txs[i].Status,
				"settled_at": txs[i].SettledAt,
				"hash":       txs[i].Hash,
			}).Error; err != nil {
			return err
		}
	}

	return nil
}

// Fail marks a transaction failed with no balance effect. Failing a row that
// already reached a terminal state is a no-op, so gateway callbacks and the
// timeout watcher can race without harm.
func (s *LedgerService) Fail(txID uint, reason string) error {
	result := database.DB.Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", txID, []models.TransactionStatus{
			models.TransactionStatusPending,
			models.TransactionStatusAwaitingExternal,
		}).
		Updates(map[string]interface{}{
			"status":      models.TransactionStatusFailed,
			"fail_reason": reason,
		})
	return result.Error
}

// FailGroup fails every non-terminal leg of a group together.
func (s *LedgerService) FailGroup(groupID string, reason string) error {
	result := database.DB.Model(&models.Transaction{}).
		Where("group_id = ? AND status IN ?", groupID, []models.TransactionStatus{
			models.TransactionStatusPending,
			models.TransactionStatusAwaitingExternal,
		}).
		Updates(map[string]interface{}{
			"status":      models.TransactionStatusFailed,
			"fail_reason": reason,
		})
	return result.Error
}

// Reverse creates and settles a compensating adjustment for a settled
// transaction. The original row is never edited; the new row links back via
// metadata so auditors can walk the chain.
func (s *LedgerService) Reverse(originalID uint, adminID uint, reason string) (*models.Transaction, error) {
	var original models.Transaction
	if err := database.DB.First(&original, originalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if original.Status != models.TransactionStatusSettled {
		return nil, ErrNotSettled
	}

	// Invert the full effect the original had on its wallet (amount - fee).
	compensation, err := s.AppendTransaction(AppendParams{
		WalletID:             original.WalletID,
		CounterpartyWalletID: original.CounterpartyWalletID,
		Type:                 models.TransactionTypeAdjustment,
		Amount:               -(original.Amount - original.Fee),
		Metadata: models.JSON{
			models.MetaReversalOf:     float64(original.ID),
			models.MetaReviewerID:     float64(adminID),
			models.MetaReversalReason: reason,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.Settle(compensation.ID); err != nil {
		// Leave an auditable failed row rather than deleting it.
		_ = s.Fail(compensation.ID, err.Error())
		return nil, err
	}

	var settled models.Transaction
	if err := database.DB.First(&settled, compensation.ID).Error; err != nil {
		return nil, err
	}
	return &settled, nil
}
