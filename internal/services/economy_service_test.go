package services

import (
	"errors"
	"testing"
	"time"

	"degentalk-backend/internal/database"
	"degentalk-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTipMovesFundsAndBurns(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	xp := &recordingXP{}
	econ := newTestEconomy(testEconomyConfig(), &fakeGateway{}, xp, nil)

	sender, senderWallet := createTestUser("tipper", 5, 1000)
	recipient, recipientWallet := createTestUser("tippee", 5, 0)

	result, err := econ.Tip(sender.ID, recipient.ID, 100, "post_123")
	assert.NoError(t, err)
	assert.Equal(t, int64(900), result.NewBalance)
	assert.Equal(t, int64(2), result.BurnAmount) // 2% of 100
	assert.Equal(t, int64(98), result.PerRecipient)
	assert.Equal(t, []uint{recipient.ID}, result.Recipients)

	assert.Equal(t, int64(900), walletBalance(senderWallet.ID))
	assert.Equal(t, int64(98), walletBalance(recipientWallet.ID))

	// Three settled legs: debit, credit, burn.
	var legs []models.Transaction
	database.DB.Where("group_id = ?", result.GroupID).Order("id asc").Find(&legs)
	assert.Len(t, legs, 3)
	for _, leg := range legs {
		assert.Equal(t, models.TransactionStatusSettled, leg.Status)
		assert.Equal(t, "post_123", leg.Metadata[models.MetaSourceFeature])
	}
	assert.Nil(t, legs[2].WalletID) // burn leg belongs to no wallet

	assert.Contains(t, xp.events, "1:tip_sent:100")
	assert.Contains(t, xp.events, "2:tip_received:98")
}

func TestTipRejectsSelfAndInvalidRecipients(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	econ := newTestEconomy(testEconomyConfig(), &fakeGateway{}, nil, nil)

	sender, _ := createTestUser("self_tipper", 5, 1000)

	_, err := econ.Tip(sender.ID, sender.ID, 100, "tip")
	assert.ErrorIs(t, err, ErrSelfTip)

	_, err = econ.Tip(sender.ID, sender.ID, 0, "tip")
	assert.ErrorIs(t, err, ErrBelowMinimum)

	inactive := models.User{Username: "ghost", Password: "x", Role: "user", Level: 5, IsActive: false, Version: 1}
	database.DB.Create(&inactive)
	_, err = econ.Tip(sender.ID, inactive.ID, 100, "tip")
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestTipGateDeniedBelowLevel(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	econ := newTestEconomy(testEconomyConfig(), &fakeGateway{}, nil, nil)

	// Tipping requires level 2.
	lowbie, _ := createTestUser("lowbie", 1, 1000)
	target, _ := createTestUser("target", 5, 0)

	_, err := econ.Tip(lowbie.ID, target.ID, 100, "tip")
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestTipInsufficientBalanceReleasesReservation(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	cfg := testEconomyConfig()
	econ := newTestEconomy(cfg, &fakeGateway{}, nil, nil)

	sender, senderWallet := createTestUser("broke_tipper", 5, 50)
	recipient, recipientWallet := createTestUser("waiting_tippee", 5, 0)

	_, err := econ.Tip(sender.ID, recipient.ID, 100, "tip")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.Equal(t, int64(50), walletBalance(senderWallet.ID))
	assert.Equal(t, int64(0), walletBalance(recipientWallet.ID))

	// The failed tip gives back its rate reservation in full.
	remaining, err := econ.Guard().RemainingAllowance(sender.ID, models.ActionTypeTip)
	assert.NoError(t, err)
	assert.Equal(t, cfg.TipDailyCap, remaining)

	// Legs are left as an auditable failed group.
	var failedCount int64
	database.DB.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusFailed).Count(&failedCount)
	assert.Equal(t, int64(3), failedCount)
}

func TestRainShrinksRecipientsToClearMinShare(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	econ := newTestEconomy(testEconomyConfig(), &fakeGateway{}, nil, nil)

	sender, senderWallet := createTestUser("rainmaker", 10, 1000)
	var ids []uint
	var wallets []uint
	for i := 0; i < 7; i++ {
		u, w := createTestUser("raindrop_"+string(rune('a'+i)), 5, 0)
		ids = append(ids, u.ID)
		wallets = append(wallets, w.ID)
	}

	// 100 over 7 would be 14 each, under the minimum share of 20. The set
	// shrinks from the tail until 100/5 = 20 clears it.
	result, err := econ.Rain(sender.ID, 100, ids, "thread_9")
	assert.NoError(t, err)
	assert.Equal(t, int64(20), result.PerRecipient)
	assert.Equal(t, int64(0), result.BurnAmount)
	assert.Equal(t, ids[:5], result.Recipients)
	assert.Equal(t, int64(900), result.NewBalance)

	for i, wID := range wallets {
		if i < 5 {
			assert.Equal(t, int64(20), walletBalance(wID))
		} else {
			assert.Equal(t, int64(0), walletBalance(wID))
		}
	}
	assert.Equal(t, int64(900), walletBalance(senderWallet.ID))
}

func TestRainBurnsIntegerRemainder(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	econ := newTestEconomy(testEconomyConfig(), &fakeGateway{}, nil, nil)

	sender, senderWallet := createTestUser("drizzler", 10, 1000)
	var ids []uint
	for i := 0; i < 4; i++ {
		u, _ := createTestUser("drop_"+string(rune('a'+i)), 5, 0)
		ids = append(ids, u.ID)
	}

	// 103 over 4: share 25, remainder 3 burned.
	result, err := econ.Rain(sender.ID, 103, ids, "rain")
	assert.NoError(t, err)
	assert.Equal(t, int64(25), result.PerRecipient)
	assert.Equal(t, int64(3), result.BurnAmount)

	// Sender is charged the full total.
	assert.Equal(t, int64(897), walletBalance(senderWallet.ID))
}

func TestRainValidation(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	cfg := testEconomyConfig()
	cfg.RainMaxRecipients = 3
	econ := newTestEconomy(cfg, &fakeGateway{}, nil, nil)

	sender, _ := createTestUser("strict_rainer", 10, 1000)
	var ids []uint
	for i := 0; i < 4; i++ {
		u, _ := createTestUser("crowd_"+string(rune('a'+i)), 5, 0)
		ids = append(ids, u.ID)
	}

	_, err := econ.Rain(sender.ID, 500, ids, "rain")
	assert.ErrorIs(t, err, ErrAboveMaximum)

	// Duplicates and the sender collapse before the max check.
	dupes := []uint{ids[0], ids[0], sender.ID, ids[1]}
	result, err := econ.Rain(sender.ID, 100, dupes, "rain")
	assert.NoError(t, err)
	assert.Equal(t, []uint{ids[0], ids[1]}, result.Recipients)

	// A total too small for even one minimum share goes nowhere.
	_, err = econ.Rain(sender.ID, 10, ids[:2], "rain")
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestDepositLifecycle(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	gw := &fakeGateway{}
	xp := &recordingXP{}
	econ := newTestEconomy(testEconomyConfig(), gw, xp, nil)

	user, wallet := createTestUser("depositor", 5, 0)

	tx, err := econ.InitiateDeposit(user.ID, 100)
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusAwaitingExternal, tx.Status)
	assert.Contains(t, tx.ExternalRef, "watch-")
	assert.Equal(t, int64(0), walletBalance(wallet.ID))

	// The gateway reports the actual received amount; credit follows it,
	// not the caller's expectation.
	assert.NoError(t, econ.ConfirmDeposit(tx.GroupID, 250))
	assert.Equal(t, int64(250), walletBalance(wallet.ID))

	var settled models.Transaction
	database.DB.First(&settled, tx.ID)
	assert.Equal(t, models.TransactionStatusSettled, settled.Status)
	assert.Equal(t, int64(250), settled.Amount)

	assert.Contains(t, xp.events, "1:deposit:250")

	// A second confirmation finds nothing awaiting.
	assert.ErrorIs(t, econ.ConfirmDeposit(tx.GroupID, 250), ErrTransactionNotFound)
}

func TestDepositGatewayRejection(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	gw := &fakeGateway{depositErr: errors.New("gateway down")}
	econ := newTestEconomy(testEconomyConfig(), gw, nil, nil)

	user, wallet := createTestUser("unlucky_depositor", 5, 0)

	_, err := econ.InitiateDeposit(user.ID, 100)
	assert.ErrorIs(t, err, ErrGatewayRejected)
	assert.Equal(t, int64(0), walletBalance(wallet.ID))

	var failedCount int64
	database.DB.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusFailed).Count(&failedCount)
	assert.Equal(t, int64(1), failedCount)
}

func TestWithdrawLifecycle(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	gw := &fakeGateway{}
	econ := newTestEconomy(testEconomyConfig(), gw, nil, nil)

	user, wallet := createTestUser("withdrawer", 10, 5000)

	// 1000 cents at 1 cent/DGT: gross 1000, fee 1% + 10 flat = 20, net 980.
	tx, err := econ.Withdraw(user.ID, 1000, "0xdeadbeef")
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusAwaitingExternal, tx.Status)
	assert.Equal(t, int64(-980), tx.Amount)
	assert.Equal(t, int64(20), tx.Fee)
	assert.Equal(t, "0xdeadbeef", tx.Metadata["destination"])

	// Nothing leaves the wallet until the gateway confirms.
	assert.Equal(t, int64(5000), walletBalance(wallet.ID))

	assert.NoError(t, econ.ConfirmWithdrawal(tx.GroupID))
	assert.Equal(t, int64(4000), walletBalance(wallet.ID))

	var settled models.Transaction
	database.DB.First(&settled, tx.ID)
	assert.Equal(t, models.TransactionStatusSettled, settled.Status)
}

func TestWithdrawBoundsCheckedBeforeAnything(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	econ := newTestEconomy(testEconomyConfig(), &fakeGateway{}, nil, nil)
	user, _ := createTestUser("bounds_tester", 10, 100000)

	_, err := econ.Withdraw(user.ID, 400, "0xdeadbeef") // below 500 minimum
	assert.ErrorIs(t, err, ErrBelowMinimum)

	_, err = econ.Withdraw(user.ID, 200000, "0xdeadbeef") // above 100000 maximum
	assert.ErrorIs(t, err, ErrAboveMaximum)

	_, err = econ.Withdraw(user.ID, 1000, "")
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	// No transaction row exists for any rejected attempt.
	var count int64
	database.DB.Model(&models.Transaction{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestWithdrawKYCHardPrecondition(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	econ := newTestEconomy(testEconomyConfig(), &fakeGateway{}, nil, rejectingKYC{})
	user, _ := createTestUser("unverified", 10, 100000)

	_, err := econ.Withdraw(user.ID, 1000, "0xdeadbeef")
	assert.ErrorIs(t, err, ErrFeatureDisabled)

	var count int64
	database.DB.Model(&models.Transaction{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestWithdrawGatewayRejectionReleasesReservation(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	cfg := testEconomyConfig()
	gw := &fakeGateway{withdrawErr: errors.New("destination blocked")}
	econ := newTestEconomy(cfg, gw, nil, nil)

	user, wallet := createTestUser("blocked_withdrawer", 10, 100000)

	_, err := econ.Withdraw(user.ID, 1000, "0xdeadbeef")
	assert.ErrorIs(t, err, ErrGatewayRejected)
	assert.Equal(t, int64(100000), walletBalance(wallet.ID))

	remaining, err := econ.Guard().RemainingAllowance(user.ID, models.ActionTypeWithdraw)
	assert.NoError(t, err)
	assert.Equal(t, cfg.WithdrawDailyCap, remaining)
}

func TestRejectExternalFailsRowAndReleases(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	cfg := testEconomyConfig()
	econ := newTestEconomy(cfg, &fakeGateway{}, nil, nil)

	user, wallet := createTestUser("rejected_withdrawer", 10, 100000)

	tx, err := econ.Withdraw(user.ID, 1000, "0xdeadbeef")
	assert.NoError(t, err)

	assert.NoError(t, econ.RejectExternal(tx.GroupID, "address invalid"))

	var failed models.Transaction
	database.DB.First(&failed, tx.ID)
	assert.Equal(t, models.TransactionStatusFailed, failed.Status)
	assert.Equal(t, "address invalid", failed.FailReason)
	assert.Equal(t, int64(100000), walletBalance(wallet.ID))

	remaining, _ := econ.Guard().RemainingAllowance(user.ID, models.ActionTypeWithdraw)
	assert.Equal(t, cfg.WithdrawDailyCap, remaining)
}

func TestCancelPendingOwnershipAndState(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	econ := newTestEconomy(testEconomyConfig(), &fakeGateway{}, nil, nil)

	user, _ := createTestUser("canceller", 10, 100000)
	stranger, _ := createTestUser("stranger", 10, 0)

	tx, err := econ.Withdraw(user.ID, 1000, "0xdeadbeef")
	assert.NoError(t, err)

	// Someone else cannot cancel it.
	assert.ErrorIs(t, econ.CancelPending(tx.ID, stranger.ID), ErrTransactionNotFound)

	assert.NoError(t, econ.CancelPending(tx.ID, user.ID))

	var cancelled models.Transaction
	database.DB.First(&cancelled, tx.ID)
	assert.Equal(t, models.TransactionStatusFailed, cancelled.Status)

	// Terminal rows cannot be cancelled again.
	assert.ErrorIs(t, econ.CancelPending(tx.ID, user.ID), ErrNotCancellable)
}

func TestExpireStaleFailsOldAwaitingRows(t *testing.T) {
	setupEconomyTestDB()
	mr := setupEconomyTestRedis()
	defer mr.Close()

	cfg := testEconomyConfig()
	cfg.GatewayTimeout = 30 * time.Minute
	econ := newTestEconomy(cfg, &fakeGateway{}, nil, nil)

	user, wallet := createTestUser("stale_depositor", 5, 0)

	tx, err := econ.InitiateDeposit(user.ID, 100)
	assert.NoError(t, err)

	// Fresh rows survive a sweep.
	expired, err := econ.ExpireStale()
	assert.NoError(t, err)
	assert.Equal(t, 0, expired)

	// Age the row past the timeout.
	database.DB.Model(&models.Transaction{}).Where("id = ?", tx.ID).
		Update("created_at", time.Now().Add(-time.Hour))

	expired, err = econ.ExpireStale()
	assert.NoError(t, err)
	assert.Equal(t, 1, expired)

	var failed models.Transaction
	database.DB.First(&failed, tx.ID)
	assert.Equal(t, models.TransactionStatusFailed, failed.Status)
	assert.Equal(t, ErrGatewayTimeout.Error(), failed.FailReason)
	assert.Equal(t, int64(0), walletBalance(wallet.ID))
}
