package services

import (
	"errors"

	"degentalk-backend/internal/database"
	"degentalk-backend/internal/models"
	"degentalk-backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrWalletNotFound = errors.New("wallet not found")

// FindWallets retrieves a paginated list of wallets for the admin view.
func FindWallets(page, limit int) ([]models.Wallet, int64, error) {
	var wallets []models.Wallet
	var total int64

	if err := database.DB.Model(&models.Wallet{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := database.DB.Order("id asc").Limit(limit).Offset(offset).
		Find(&wallets).Error; err != nil {
		return nil, 0, err
	}

	return wallets, total, nil
}

func FindWalletByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := database.DB.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// SetWalletStatus freezes or unfreezes a wallet. A frozen wallet rejects all
// settlements until unfrozen; the balance itself is untouched.
func SetWalletStatus(walletID uint, status models.WalletStatus, operator string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := database.DB.First(&wallet, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}

	result := database.DB.Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version).
		Updates(map[string]interface{}{
			"status":  status,
			"version": wallet.Version + 1,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrOptimisticLock
	}

	logger.Log.Info("wallet status changed",
		zap.Uint("wallet_id", wallet.ID),
		zap.Uint("user_id", wallet.UserID),
		zap.String("status", string(status)),
		zap.String("operator", operator))

	wallet.Status = status
	wallet.Version++
	return &wallet, nil
}
