package services

import (
	"fmt"
	"time"

	"degentalk-backend/config"
	"degentalk-backend/internal/database"
	"degentalk-backend/internal/models"
	"degentalk-backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEconomyTestDB() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.Migrator().DropTable(
		&models.User{}, &models.Wallet{}, &models.Transaction{},
		&models.RateUsageRecord{}, &models.FeatureGate{}, &models.GatewayConfig{},
	)
	db.AutoMigrate(
		&models.User{}, &models.Wallet{}, &models.Transaction{},
		&models.RateUsageRecord{}, &models.FeatureGate{}, &models.GatewayConfig{},
	)

	database.DB = db
	logger.Log = zap.NewNop()
}

func setupEconomyTestRedis() *miniredis.Miniredis {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	database.RedisClient = redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr
}

// testEconomyConfig has no cooldowns so sequential test actions do not
// interfere; tests that exercise cooldowns set them explicitly.
func testEconomyConfig() config.EconomyConfig {
	return config.EconomyConfig{
		TipBurnPercent: 200, // 2%
		TipDailyCap:    1000,

		RainDailyCap:      5000,
		RainMaxRecipients: 50,
		RainMinShare:      20,

		WithdrawDailyCap:   10000,
		WithdrawMinUSD:     500,
		WithdrawMaxUSD:     100000,
		WithdrawFeePercent: 100, // 1%
		WithdrawFeeFlat:    10,

		USDCentsPerDGT: 1,

		GatewayTimeout: 30 * time.Minute,
		WatchInterval:  time.Minute,

		SettleRetries: 10,
	}
}

func createTestUser(username string, level int, balance int64) (*models.User, *models.Wallet) {
	user := models.User{
		Username: username,
		Password: "hashed",
		Role:     "user",
		Level:    level,
		IsActive: true,
		Version:  1,
	}
	database.DB.Create(&user)

	wallet := models.Wallet{
		UserID:  user.ID,
		Balance: balance,
		Status:  models.WalletStatusActive,
		Version: 1,
	}
	database.DB.Create(&wallet)

	return &user, &wallet
}

// fakeGateway records initiations and can be told to reject them.
type fakeGateway struct {
	depositErr  error
	withdrawErr error

	deposits    []string
	withdrawals []string
}

func (g *fakeGateway) InitiateDeposit(reference string, expectedAmount int64) (string, error) {
	if g.depositErr != nil {
		return "", g.depositErr
	}
	g.deposits = append(g.deposits, reference)
	return fmt.Sprintf("watch-%s", reference), nil
}

func (g *fakeGateway) InitiateWithdrawal(reference string, destination string, amount int64) (string, error) {
	if g.withdrawErr != nil {
		return "", g.withdrawErr
	}
	g.withdrawals = append(g.withdrawals, reference)
	return fmt.Sprintf("gwtx-%s", reference), nil
}

// recordingXP captures reported events for assertions.
type recordingXP struct {
	events []string
}

func (r *recordingXP) ReportEconomicEvent(userID uint, eventType string, amount int64) {
	r.events = append(r.events, fmt.Sprintf("%d:%s:%d", userID, eventType, amount))
}

type rejectingKYC struct{}

func (rejectingKYC) IsEligibleForWithdrawal(uint) (bool, error) { return false, nil }

func newTestEconomy(cfg config.EconomyConfig, gw SettlementGateway, xp XPReporter, kyc EligibilityChecker) *EconomyService {
	if err := SeedFeatureGates(); err != nil {
		panic(err)
	}
	evaluator, err := LoadGateEvaluator()
	if err != nil {
		panic(err)
	}

	ledger := NewLedgerService("test_secret", cfg.SettleRetries)
	guard := NewRateGuard(cfg)
	if xp == nil {
		xp = NoopXPReporter{}
	}
	if kyc == nil {
		kyc = AlwaysEligible{}
	}
	return NewEconomyService(cfg, ledger, guard, evaluator, gw, xp, kyc)
}

func walletBalance(walletID uint) int64 {
	var w models.Wallet
	database.DB.First(&w, walletID)
	return w.Balance
}
