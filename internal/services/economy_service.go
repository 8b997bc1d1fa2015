package services

import (
	"errors"
	"fmt"
	"time"

	"degentalk-backend/config"
	"degentalk-backend/internal/database"
	"degentalk-backend/internal/featuregate"
	"degentalk-backend/internal/models"
	"degentalk-backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SettlementGateway is the engine's view of the external crypto gateway. The
// gateway confirms or rejects asynchronously through the webhook handler;
// these calls only hand work off.
type SettlementGateway interface {
	InitiateDeposit(reference string, expectedAmount int64) (watchHandle string, err error)
	InitiateWithdrawal(reference string, destination string, amount int64) (gatewayTxID string, err error)
}

// XPReporter receives economic events for the external leveling service.
// Implementations must be fire-and-forget: a reporting failure never rolls
// back the ledger.
type XPReporter interface {
	ReportEconomicEvent(userID uint, eventType string, amount int64)
}

// EligibilityChecker is the KYC-style collaborator consulted synchronously
// before a withdrawal transaction is created.
type EligibilityChecker interface {
	IsEligibleForWithdrawal(userID uint) (bool, error)
}

// XP event types reported to the leveling service.
const (
	EventTipSent      = "tip_sent"
	EventTipReceived  = "tip_received"
	EventRainSent     = "rain_sent"
	EventRainReceived = "rain_received"
	EventDeposit      = "deposit"
	EventWithdrawal   = "withdrawal"
)

// EconomyService is the only entry point callers use to move DGT. It
// composes the feature gates, the rate guard and the ledger into the four
// compound operations (tip, rain, deposit, withdraw) and owns all fee, burn
// and peg-rate math.
type EconomyService struct {
	cfg     config.EconomyConfig
	ledger  *LedgerService
	guard   *RateGuard
	gates   *featuregate.Evaluator
	gateway SettlementGateway
	xp      XPReporter
	kyc     EligibilityChecker
}

func NewEconomyService(
	cfg config.EconomyConfig,
	ledger *LedgerService,
	guard *RateGuard,
	gates *featuregate.Evaluator,
	gateway SettlementGateway,
	xp XPReporter,
	kyc EligibilityChecker,
) *EconomyService {
	return &EconomyService{
		cfg:     cfg,
		ledger:  ledger,
		guard:   guard,
		gates:   gates,
		gateway: gateway,
		xp:      xp,
		kyc:     kyc,
	}
}

func (s *EconomyService) Ledger() *LedgerService { return s.ledger }
func (s *EconomyService) Guard() *RateGuard      { return s.guard }

// TransferResult is the success payload of tip and rain.
type TransferResult struct {
	GroupID    string
	NewBalance int64
	BurnAmount int64
	// PerRecipient is the credited share; for tips it is the net amount.
	PerRecipient int64
	Recipients   []uint
}

func (s *EconomyService) checkGate(featureKey string, u *models.User) error {
	decision := s.gates.HasAccess(featureKey, u.Level, u.IsDeveloper, u.ID)
	if !decision.Allowed {
		return &FeatureDisabledError{Reason: decision.Reason}
	}
	return nil
}

func (s *EconomyService) report(userID uint, eventType string, amount int64) {
	if s.xp != nil {
		s.xp.ReportEconomicEvent(userID, eventType, amount)
	}
}

// Tip moves amount from one user to another, burning a configured percentage
// of it. The debit, credit and burn legs settle atomically; any failure
// after the rate reservation releases it.
func (s *EconomyService) Tip(fromUserID, toUserID uint, amount int64, source string) (*TransferResult, error) {
	if amount <= 0 {
		return nil, ErrBelowMinimum
	}
	if fromUserID == toUserID {
		return nil, ErrSelfTip
	}

	sender, err := FindUserByID(fromUserID)
	if err != nil {
		return nil, err
	}
	recipient, err := FindUserByID(toUserID)
	if err != nil || !recipient.IsActive {
		return nil, ErrInvalidRecipient
	}

	if err := s.checkGate(models.FeatureTipping, &sender); err != nil {
		return nil, err
	}

	senderWallet, err := s.ledger.GetOrCreateWallet(fromUserID)
	if err != nil {
		return nil, err
	}
	recipientWallet, err := s.ledger.GetOrCreateWallet(toUserID)
	if err != nil {
		return nil, err
	}

	reservation, err := s.guard.CheckAndReserve(fromUserID, models.ActionTypeTip, amount)
	if err != nil {
		return nil, err
	}

	burnAmount := amount * s.cfg.TipBurnPercent / 10000
	netAmount := amount - burnAmount

	groupID := uuid.New().String()
	meta := models.JSON{models.MetaSourceFeature: source}

	legs := []AppendParams{
		{GroupID: groupID, WalletID: &senderWallet.ID, CounterpartyWalletID: &recipientWallet.ID,
			Type: models.TransactionTypeTip, Amount: -amount, Metadata: meta},
		{GroupID: groupID, WalletID: &recipientWallet.ID, CounterpartyWalletID: &senderWallet.ID,
			Type: models.TransactionTypeTip, Amount: netAmount, Metadata: meta},
	}
	if burnAmount > 0 {
		legs = append(legs, AppendParams{GroupID: groupID,
			Type: models.TransactionTypeBurn, Amount: -burnAmount, Metadata: meta})
	}

	if err := s.appendAndSettle(groupID, legs); err != nil {
		s.guard.Release(reservation)
		return nil, err
	}

	s.report(fromUserID, EventTipSent, amount)
	s.report(toUserID, EventTipReceived, netAmount)

	balance, err := s.currentBalance(senderWallet.ID)
	if err != nil {
		return nil, err
	}
	return &TransferResult{
		GroupID:      groupID,
		NewBalance:   balance,
		BurnAmount:   burnAmount,
		PerRecipient: netAmount,
		Recipients:   []uint{toUserID},
	}, nil
}

// Rain fans totalAmount out across recipients in equal shares. Recipients
// whose share would fall under the configured minimum are excluded before
// the split; the integer remainder is burned, never silently dropped and
// never handed to an arbitrary recipient.
func (s *EconomyService) Rain(fromUserID uint, totalAmount int64, recipientIDs []uint, source string) (*TransferResult, error) {
	if totalAmount <= 0 {
		return nil, ErrBelowMinimum
	}

	sender, err := FindUserByID(fromUserID)
	if err != nil {
		return nil, err
	}
	if err := s.checkGate(models.FeatureRain, &sender); err != nil {
		return nil, err
	}

	recipients, err := s.validRainRecipients(fromUserID, recipientIDs)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrInvalidRecipient
	}
	if len(recipients) > s.cfg.RainMaxRecipients {
		return nil, ErrAboveMaximum
	}

	// Shrink the recipient set until the equal share clears the minimum.
	n := len(recipients)
	for n > 0 && totalAmount/int64(n) < s.cfg.RainMinShare {
		n--
	}
	if n == 0 {
		return nil, ErrBelowMinimum
	}
	recipients = recipients[:n]
	share := totalAmount / int64(n)
	burnAmount := totalAmount - share*int64(n)

	senderWallet, err := s.ledger.GetOrCreateWallet(fromUserID)
	if err != nil {
		return nil, err
	}

	recipientWallets := make([]*models.Wallet, 0, n)
	recipientUserIDs := make([]uint, 0, n)
	for _, r := range recipients {
		w, err := s.ledger.GetOrCreateWallet(r.ID)
		if err != nil {
			return nil, err
		}
		recipientWallets = append(recipientWallets, w)
		recipientUserIDs = append(recipientUserIDs, r.ID)
	}

	reservation, err := s.guard.CheckAndReserve(fromUserID, models.ActionTypeRain, totalAmount)
	if err != nil {
		return nil, err
	}

	groupID := uuid.New().String()
	meta := models.JSON{models.MetaSourceFeature: source}

	legs := []AppendParams{
		{GroupID: groupID, WalletID: &senderWallet.ID,
			Type: models.TransactionTypeRain, Amount: -totalAmount, Metadata: meta},
	}
	for _, w := range recipientWallets {
		legs = append(legs, AppendParams{GroupID: groupID, WalletID: &w.ID,
			CounterpartyWalletID: &senderWallet.ID,
			Type:                 models.TransactionTypeRain, Amount: share, Metadata: meta})
	}
	if burnAmount > 0 {
		legs = append(legs, AppendParams{GroupID: groupID,
			Type: models.TransactionTypeBurn, Amount: -burnAmount, Metadata: meta})
	}

	if err := s.appendAndSettle(groupID, legs); err != nil {
		s.guard.Release(reservation)
		return nil, err
	}

	s.report(fromUserID, EventRainSent, totalAmount)
	for _, id := range recipientUserIDs {
		s.report(id, EventRainReceived, share)
	}

	balance, err := s.currentBalance(senderWallet.ID)
	if err != nil {
		return nil, err
	}
	return &TransferResult{
		GroupID:      groupID,
		NewBalance:   balance,
		BurnAmount:   burnAmount,
		PerRecipient: share,
		Recipients:   recipientUserIDs,
	}, nil
}

// InitiateDeposit creates the awaiting_external credit for a deposit and
// hands the watch over to the settlement gateway. The wallet is only
// credited when the gateway confirms finality.
func (s *EconomyService) InitiateDeposit(userID uint, expectedAmount int64) (*models.Transaction, error) {
	if expectedAmount <= 0 {
		return nil, ErrBelowMinimum
	}

	u, err := FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.checkGate(models.FeatureDeposit, &u); err != nil {
		return nil, err
	}

	wallet, err := s.ledger.GetOrCreateWallet(userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.ledger.AppendTransaction(AppendParams{
		WalletID: &wallet.ID,
		Type:     models.TransactionTypeDeposit,
		Amount:   expectedAmount,
		Metadata: models.JSON{models.MetaSourceFeature: "deposit"},
	})
	if err != nil {
		return nil, err
	}

	handle, err := s.gateway.InitiateDeposit(tx.GroupID, expectedAmount)
	if err != nil {
		_ = s.ledger.Fail(tx.ID, fmt.Sprintf("gateway: %v", err))
		return nil, ErrGatewayRejected
	}

	if err := database.DB.Model(&models.Transaction{}).Where("id = ?", tx.ID).
		Updates(map[string]interface{}{
			"status":       models.TransactionStatusAwaitingExternal,
			"external_ref": handle,
		}).Error; err != nil {
		return nil, err
	}

	tx.Status = models.TransactionStatusAwaitingExternal
	tx.ExternalRef = handle
	return tx, nil
}

// ConfirmDeposit settles a deposit using the gateway's reported final amount
// in USD cents, converted at the peg rate in effect now rather than at
// request time. A delayed confirmation cannot arbitrage a rate move.
func (s *EconomyService) ConfirmDeposit(reference string, finalAmountUSDCents int64) error {
	tx, err := s.awaitingByReference(reference)
	if err != nil {
		return err
	}
	if tx.Type != models.TransactionTypeDeposit {
		return ErrTransactionNotFound
	}

	credited := finalAmountUSDCents / s.cfg.USDCentsPerDGT
	if credited <= 0 {
		_ = s.ledger.Fail(tx.ID, "confirmed amount rounds to zero")
		return ErrBelowMinimum
	}

	if err := database.DB.Model(&models.Transaction{}).Where("id = ?", tx.ID).
		Update("amount", credited).Error; err != nil {
		return err
	}
	if err := s.ledger.Settle(tx.ID); err != nil {
		return err
	}

	wallet, err := s.walletByID(*tx.WalletID)
	if err == nil {
		s.report(wallet.UserID, EventDeposit, credited)
	}
	return nil
}

// Withdraw converts a USD amount to DGT at the current peg rate, applies the
// percentage-plus-flat fee and hands an awaiting_external debit to the
// gateway. Balance is checked and taken only at settlement, when the
// gateway confirms.
func (s *EconomyService) Withdraw(userID uint, usdCents int64, destination string) (*models.Transaction, error) {
	if usdCents < s.cfg.WithdrawMinUSD {
		return nil, ErrBelowMinimum
	}
	if usdCents > s.cfg.WithdrawMaxUSD {
		return nil, ErrAboveMaximum
	}
	if destination == "" {
		return nil, ErrInvalidRecipient
	}

	u, err := FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.checkGate(models.FeatureWithdraw, &u); err != nil {
		return nil, err
	}

	// Hard precondition: no transaction row is created for an ineligible user.
	eligible, err := s.kyc.IsEligibleForWithdrawal(userID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, &FeatureDisabledError{Reason: "withdrawal_eligibility"}
	}

	gross := usdCents / s.cfg.USDCentsPerDGT
	fee := gross*s.cfg.WithdrawFeePercent/10000 + s.cfg.WithdrawFeeFlat
	net := gross - fee
	if net <= 0 {
		return nil, ErrBelowMinimum
	}

	wallet, err := s.ledger.GetOrCreateWallet(userID)
	if err != nil {
		return nil, err
	}

	reservation, err := s.guard.CheckAndReserve(userID, models.ActionTypeWithdraw, gross)
	if err != nil {
		return nil, err
	}

	tx, err := s.ledger.AppendTransaction(AppendParams{
		WalletID: &wallet.ID,
		Type:     models.TransactionTypeWithdrawal,
		Amount:   -net,
		Fee:      fee,
		Metadata: models.JSON{
			models.MetaSourceFeature: "withdrawal",
			"destination":            destination,
			"reserved_amount":        float64(gross),
		},
	})
	if err != nil {
		s.guard.Release(reservation)
		return nil, err
	}

	gatewayTxID, err := s.gateway.InitiateWithdrawal(tx.GroupID, destination, net)
	if err != nil {
		_ = s.ledger.Fail(tx.ID, fmt.Sprintf("gateway: %v", err))
		s.guard.Release(reservation)
		return nil, ErrGatewayRejected
	}

	if err := database.DB.Model(&models.Transaction{}).Where("id = ?", tx.ID).
		Updates(map[string]interface{}{
			"status":       models.TransactionStatusAwaitingExternal,
			"external_ref": gatewayTxID,
		}).Error; err != nil {
		return nil, err
	}

	tx.Status = models.TransactionStatusAwaitingExternal
	tx.ExternalRef = gatewayTxID
	return tx, nil
}

// ConfirmWithdrawal settles the debit after the gateway confirms the
// on-chain transfer. An insufficient balance at this point fails the row and
// releases the reservation instead of leaving it pending.
func (s *EconomyService) ConfirmWithdrawal(reference string) error {
	tx, err := s.awaitingByReference(reference)
	if err != nil {
		return err
	}
	if tx.Type != models.TransactionTypeWithdrawal {
		return ErrTransactionNotFound
	}

	if err := s.ledger.Settle(tx.ID); err != nil {
		_ = s.ledger.Fail(tx.ID, err.Error())
		s.releaseForTransaction(tx)
		return err
	}

	wallet, werr := s.walletByID(*tx.WalletID)
	if werr == nil {
		s.report(wallet.UserID, EventWithdrawal, -tx.Amount)
	}
	return nil
}

// RejectExternal fails an awaiting_external transaction after a gateway
// rejection and releases any rate reservation it held.
func (s *EconomyService) RejectExternal(reference string, reason string) error {
	tx, err := s.awaitingByReference(reference)
	if err != nil {
		return err
	}
	if err := s.ledger.Fail(tx.ID, reason); err != nil {
		return err
	}
	s.releaseForTransaction(tx)
	return nil
}

// CancelPending lets the owner abort a deposit or withdrawal that is still
// awaiting external confirmation.
func (s *EconomyService) CancelPending(txID uint, userID uint) error {
	var tx models.Transaction
	if err := database.DB.First(&tx, txID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}
	if tx.WalletID == nil {
		return ErrTransactionNotFound
	}
	wallet, err := s.walletByID(*tx.WalletID)
	if err != nil || wallet.UserID != userID {
		return ErrTransactionNotFound
	}
	if tx.Status != models.TransactionStatusAwaitingExternal {
		return ErrNotCancellable
	}

	if err := s.ledger.Fail(tx.ID, "cancelled by user"); err != nil {
		return err
	}
	s.releaseForTransaction(&tx)
	return nil
}

// ExpireStale fails awaiting_external rows older than the gateway timeout so
// nothing stays pending indefinitely. Called periodically by the settlement
// watcher.
func (s *EconomyService) ExpireStale() (int, error) {
	cutoff := time.Now().Add(-s.cfg.GatewayTimeout)

	var stale []models.Transaction
	if err := database.DB.
		Where("status = ? AND created_at < ?", models.TransactionStatusAwaitingExternal, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		if err := s.ledger.Fail(stale[i].ID, ErrGatewayTimeout.Error()); err != nil {
			logger.Log.Error("failed to expire stale transaction",
				zap.Uint("transaction_id", stale[i].ID), zap.Error(err))
			continue
		}
		s.releaseForTransaction(&stale[i])
		expired++
	}
	return expired, nil
}

// ReverseTransaction is the admin-only correction path: a new compensating
// adjustment row, never an edit of the original.
func (s *EconomyService) ReverseTransaction(txID uint, adminID uint, reason string) (*models.Transaction, error) {
	return s.ledger.Reverse(txID, adminID, reason)
}

func (s *EconomyService) appendAndSettle(groupID string, legs []AppendParams) error {
	for _, leg := range legs {
		if _, err := s.ledger.AppendTransaction(leg); err != nil {
			_ = s.ledger.FailGroup(groupID, "append failed")
			return err
		}
	}
	if err := s.ledger.SettleGroup(groupID); err != nil {
		_ = s.ledger.FailGroup(groupID, err.Error())
		return err
	}
	return nil
}

func (s *EconomyService) validRainRecipients(fromUserID uint, ids []uint) ([]models.User, error) {
	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == fromUserID || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, ErrInvalidRecipient
	}

	var users []models.User
	if err := database.DB.Where("id IN ? AND is_active = ?", unique, true).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) != len(unique) {
		return nil, ErrInvalidRecipient
	}

	// Preserve caller order; the shrink rule drops from the tail.
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]models.User, 0, len(unique))
	for _, id := range unique {
		ordered = append(ordered, byID[id])
	}
	return ordered, nil
}

func (s *EconomyService) currentBalance(walletID uint) (int64, error) {
	wallet, err := s.walletByID(walletID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (s *EconomyService) walletByID(walletID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := database.DB.First(&wallet, walletID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *EconomyService) awaitingByReference(reference string) (*models.Transaction, error) {
	var tx models.Transaction
	err := database.DB.
		Where("(external_ref = ? OR group_id = ?) AND status = ?",
			reference, reference, models.TransactionStatusAwaitingExternal).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// releaseForTransaction reconstructs the rate reservation held by a failed
// external transaction from its row and gives it back.
func (s *EconomyService) releaseForTransaction(tx *models.Transaction) {
	if tx.WalletID == nil || tx.Type != models.TransactionTypeWithdrawal {
		return
	}
	wallet, err := s.walletByID(*tx.WalletID)
	if err != nil {
		return
	}

	amount := -tx.Amount + tx.Fee // the gross the reservation booked
	if raw, ok := tx.Metadata["reserved_amount"].(float64); ok {
		amount = int64(raw)
	}
	s.guard.Release(&Reservation{
		UserID:     wallet.UserID,
		ActionType: models.ActionTypeWithdraw,
		Amount:     amount,
	})
}
