package services

import (
	"errors"
	"sync"
	"testing"

	"degentalk-backend/internal/database"
	"degentalk-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestSettleGroupAppliesAllLegs(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	ledger := NewLedgerService("test_secret", 3)
	_, senderWallet := createTestUser("sender", 5, 1000)
	_, recipientWallet := createTestUser("recipient", 5, 0)

	groupID := "group-1"
	_, err := ledger.AppendTransaction(AppendParams{
		GroupID: groupID, WalletID: &senderWallet.ID,
		Type: models.TransactionTypeTip, Amount: -100,
	})
	assert.NoError(t, err)
	_, err = ledger.AppendTransaction(AppendParams{
		GroupID: groupID, WalletID: &recipientWallet.ID,
		Type: models.TransactionTypeTip, Amount: 98,
	})
	assert.NoError(t, err)
	// Burn leg with no wallet.
	_, err = ledger.AppendTransaction(AppendParams{
		GroupID: groupID,
		Type:    models.TransactionTypeBurn, Amount: -2,
	})
	assert.NoError(t, err)

	assert.NoError(t, ledger.SettleGroup(groupID))

	assert.Equal(t, int64(900), walletBalance(senderWallet.ID))
	assert.Equal(t, int64(98), walletBalance(recipientWallet.ID))

	var settled []models.Transaction
	database.DB.Where("group_id = ?", groupID).Find(&settled)
	assert.Len(t, settled, 3)
	for _, tx := range settled {
		assert.Equal(t, models.TransactionStatusSettled, tx.Status)
		assert.NotNil(t, tx.SettledAt)
		assert.NotEmpty(t, tx.Hash)
	}

	var sender models.Wallet
	database.DB.First(&sender, senderWallet.ID)
	assert.Equal(t, int64(100), sender.LifetimeSpent)
	assert.Equal(t, int64(0), sender.LifetimeEarned)
}

func TestSettleGroupAtomicOnInsufficientBalance(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	ledger := NewLedgerService("test_secret", 3)
	_, senderWallet := createTestUser("poor_sender", 5, 50)
	_, recipientWallet := createTestUser("lucky_recipient", 5, 0)

	groupID := "group-over"
	ledger.AppendTransaction(AppendParams{
		GroupID: groupID, WalletID: &senderWallet.ID,
		Type: models.TransactionTypeTip, Amount: -100,
	})
	ledger.AppendTransaction(AppendParams{
		GroupID: groupID, WalletID: &recipientWallet.ID,
		Type: models.TransactionTypeTip, Amount: 100,
	})

	err := ledger.SettleGroup(groupID)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// No partial state: neither balance moved, no leg settled.
	assert.Equal(t, int64(50), walletBalance(senderWallet.ID))
	assert.Equal(t, int64(0), walletBalance(recipientWallet.ID))

	var txs []models.Transaction
	database.DB.Where("group_id = ?", groupID).Find(&txs)
	for _, tx := range txs {
		assert.Equal(t, models.TransactionStatusPending, tx.Status)
	}
}

func TestSettleFeeWorsensWallet(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	ledger := NewLedgerService("test_secret", 3)
	_, wallet := createTestUser("fee_payer", 10, 500)

	tx, err := ledger.AppendTransaction(AppendParams{
		WalletID: &wallet.ID,
		Type:     models.TransactionTypeWithdrawal,
		Amount:   -100,
		Fee:      10,
	})
	assert.NoError(t, err)
	assert.NoError(t, ledger.Settle(tx.ID))

	// Effective delta is amount minus fee.
	assert.Equal(t, int64(390), walletBalance(wallet.ID))
}

func TestSettleRejectsTerminalRows(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	ledger := NewLedgerService("test_secret", 3)
	_, wallet := createTestUser("repeat_settler", 5, 100)

	tx, _ := ledger.AppendTransaction(AppendParams{
		WalletID: &wallet.ID,
		Type:     models.TransactionTypeDeposit, Amount: 50,
	})
	assert.NoError(t, ledger.Settle(tx.ID))
	assert.Equal(t, int64(150), walletBalance(wallet.ID))

	// Settling again must not double-apply.
	err := ledger.Settle(tx.ID)
	assert.ErrorIs(t, err, ErrNotSettleable)
	assert.Equal(t, int64(150), walletBalance(wallet.ID))

	assert.ErrorIs(t, ledger.Settle(99999), ErrTransactionNotFound)
}

func TestFrozenWalletRejectsSettlement(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	ledger := NewLedgerService("test_secret", 3)
	_, wallet := createTestUser("frozen_user", 5, 100)
	database.DB.Model(&models.Wallet{}).Where("id = ?", wallet.ID).
		Update("status", models.WalletStatusFrozen)

	tx, _ := ledger.AppendTransaction(AppendParams{
		WalletID: &wallet.ID,
		Type:     models.TransactionTypeDeposit, Amount: 50,
	})
	err := ledger.Settle(tx.ID)
	assert.ErrorIs(t, err, ErrWalletFrozen)
	assert.Equal(t, int64(100), walletBalance(wallet.ID))
}

func TestFailIsIdempotent(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	ledger := NewLedgerService("test_secret", 3)
	_, wallet := createTestUser("failer", 5, 100)

	tx, _ := ledger.AppendTransaction(AppendParams{
		WalletID: &wallet.ID,
		Type:     models.TransactionTypeDeposit, Amount: 50,
	})

	assert.NoError(t, ledger.Fail(tx.ID, "gateway timeout"))

	var failed models.Transaction
	database.DB.First(&failed, tx.ID)
	assert.Equal(t, models.TransactionStatusFailed, failed.Status)
	assert.Equal(t, "gateway timeout", failed.FailReason)

	// A second failure attempt is a no-op; the original reason survives.
	assert.NoError(t, ledger.Fail(tx.ID, "late duplicate"))
	database.DB.First(&failed, tx.ID)
	assert.Equal(t, "gateway timeout", failed.FailReason)

	// Failing a settled row is also a no-op.
	tx2, _ := ledger.AppendTransaction(AppendParams{
		WalletID: &wallet.ID,
		Type:     models.TransactionTypeDeposit, Amount: 25,
	})
	assert.NoError(t, ledger.Settle(tx2.ID))
	assert.NoError(t, ledger.Fail(tx2.ID, "too late"))

	var settled models.Transaction
	database.DB.First(&settled, tx2.ID)
	assert.Equal(t, models.TransactionStatusSettled, settled.Status)
	assert.Equal(t, int64(125), walletBalance(wallet.ID))
}

func TestReverseCreatesCompensatingAdjustment(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	ledger := NewLedgerService("test_secret", 3)
	_, wallet := createTestUser("reversee", 5, 100)

	original, _ := ledger.AppendTransaction(AppendParams{
		WalletID: &wallet.ID,
		Type:     models.TransactionTypeDeposit, Amount: 500,
	})
	assert.NoError(t, ledger.Settle(original.ID))
	assert.Equal(t, int64(600), walletBalance(wallet.ID))

	adjustment, err := ledger.Reverse(original.ID, 42, "chargeback")
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionTypeAdjustment, adjustment.Type)
	assert.Equal(t, int64(-500), adjustment.Amount)
	assert.Equal(t, models.TransactionStatusSettled, adjustment.Status)
	assert.Equal(t, float64(original.ID), adjustment.Metadata[models.MetaReversalOf])
	assert.Equal(t, float64(42), adjustment.Metadata[models.MetaReviewerID])
	assert.Equal(t, "chargeback", adjustment.Metadata[models.MetaReversalReason])

	assert.Equal(t, int64(100), walletBalance(wallet.ID))

	// The original row is untouched.
	var reloaded models.Transaction
	database.DB.First(&reloaded, original.ID)
	assert.Equal(t, models.TransactionStatusSettled, reloaded.Status)
	assert.Equal(t, int64(500), reloaded.Amount)
}

func TestReverseRequiresSettledOriginal(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	ledger := NewLedgerService("test_secret", 3)
	_, wallet := createTestUser("pending_reversee", 5, 100)

	pending, _ := ledger.AppendTransaction(AppendParams{
		WalletID: &wallet.ID,
		Type:     models.TransactionTypeDeposit, Amount: 500,
	})

	_, err := ledger.Reverse(pending.ID, 1, "nope")
	assert.ErrorIs(t, err, ErrNotSettled)

	_, err = ledger.Reverse(99999, 1, "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestConcurrentSettlementsConverge(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	// Serialize connections so the shared-cache sqlite file behaves; the
	// optimistic version check still races across goroutines.
	sqlDB, err := database.DB.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ledger := NewLedgerService("test_secret", 50)
	_, wallet := createTestUser("contended", 5, 0)

	const n = 10
	ids := make([]uint, n)
	for i := 0; i < n; i++ {
		tx, err := ledger.AppendTransaction(AppendParams{
			WalletID: &wallet.ID,
			Type:     models.TransactionTypeDeposit, Amount: 10,
		})
		assert.NoError(t, err)
		ids[i] = tx.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ledger.Settle(ids[i])
		}(i)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil && !errors.Is(e, ErrTransactionFailed) {
			t.Fatalf("unexpected settlement error: %v", e)
		}
	}

	// Balance must equal the settled sum exactly, no lost or double updates.
	var settledCount int64
	database.DB.Model(&models.Transaction{}).
		Where("wallet_id = ? AND status = ?", wallet.ID, models.TransactionStatusSettled).
		Count(&settledCount)
	assert.Equal(t, settledCount*10, walletBalance(wallet.ID))
}
