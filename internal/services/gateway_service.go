package services

import (
	"encoding/json"
	"errors"
	"time"

	"degentalk-backend/internal/database"
	"degentalk-backend/internal/gateway"
	"degentalk-backend/internal/gateway/dgtpay"
	"degentalk-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var ErrGatewayNotConfigured = errors.New("no enabled settlement gateway")

func GetGatewayConfigs() ([]models.GatewayConfig, error) {
	var configs []models.GatewayConfig
	if err := database.DB.Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func CreateGatewayConfig(name string, driver string, config map[string]interface{}, enable bool) (*models.GatewayConfig, error) {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}

	gc := &models.GatewayConfig{
		UUID:      uuid.New().String(),
		Name:      name,
		Driver:    driver,
		Config:    datatypes.JSON(configJSON),
		Enable:    enable,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := database.DB.Create(gc).Error; err != nil {
		return nil, err
	}
	return gc, nil
}

func UpdateGatewayConfig(id uint, name string, config map[string]interface{}, enable *bool) (*models.GatewayConfig, error) {
	var gc models.GatewayConfig
	if err := database.DB.First(&gc, id).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if config != nil {
		configJSON, err := json.Marshal(config)
		if err != nil {
			return nil, err
		}
		updates["config"] = datatypes.JSON(configJSON)
	}
	if enable != nil {
		updates["enable"] = *enable
	}
	updates["updated_at"] = time.Now()

	if err := database.DB.Model(&gc).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &gc, nil
}

// driverFor builds and configures the driver for one gateway config.
func driverFor(gc *models.GatewayConfig) (gateway.Driver, error) {
	var driver gateway.Driver
	switch gc.Driver {
	case "dgtpay":
		driver = dgtpay.NewDGTPayDriver()
	default:
		return nil, errors.New("unsupported gateway driver")
	}

	var configMap map[string]interface{}
	if err := json.Unmarshal(gc.Config, &configMap); err != nil {
		return nil, err
	}
	if err := driver.SetConfig(configMap); err != nil {
		return nil, err
	}
	return driver, nil
}

// ConfiguredGateway implements the economy engine's SettlementGateway by
// resolving the enabled gateway config per call, so admin edits take effect
// without a restart.
type ConfiguredGateway struct{}

func (ConfiguredGateway) resolve() (gateway.Driver, error) {
	var gc models.GatewayConfig
	if err := database.DB.Where("enable = ?", true).First(&gc).Error; err != nil {
		return nil, ErrGatewayNotConfigured
	}
	return driverFor(&gc)
}

func (g ConfiguredGateway) InitiateDeposit(reference string, expectedAmount int64) (string, error) {
	driver, err := g.resolve()
	if err != nil {
		return "", err
	}
	return driver.InitiateDeposit(reference, expectedAmount)
}

func (g ConfiguredGateway) InitiateWithdrawal(reference string, destination string, amount int64) (string, error) {
	driver, err := g.resolve()
	if err != nil {
		return "", err
	}
	return driver.InitiateWithdrawal(reference, destination, amount)
}

// HandleGatewayNotify verifies an inbound callback against the config the
// webhook URL names, then drives the matching transaction through the
// economy engine: confirmed deposits credit, confirmed withdrawals settle,
// rejections fail the row and release its reservation.
func HandleGatewayNotify(econ *EconomyService, gatewayUUID string, params map[string]interface{}) error {
	var gc models.GatewayConfig
	if err := database.DB.Where("uuid = ?", gatewayUUID).First(&gc).Error; err != nil {
		return err
	}

	driver, err := driverFor(&gc)
	if err != nil {
		return err
	}

	notification, err := driver.Notify(params)
	if err != nil {
		return err
	}

	if !notification.Confirmed {
		reason := notification.Reason
		if reason == "" {
			reason = ErrGatewayRejected.Error()
		}
		return econ.RejectExternal(notification.Reference, reason)
	}

	// Record the gateway-side id on the row before settlement.
	if notification.ExternalID != "" {
		database.DB.Model(&models.Transaction{}).
			Where("group_id = ? AND status = ?", notification.Reference, models.TransactionStatusAwaitingExternal).
			Update("external_ref", notification.ExternalID)
	}

	tx, err := econ.awaitingByReference(notification.Reference)
	if err != nil {
		return err
	}
	switch tx.Type {
	case models.TransactionTypeDeposit:
		return econ.ConfirmDeposit(notification.Reference, notification.FinalAmount)
	case models.TransactionTypeWithdrawal:
		return econ.ConfirmWithdrawal(notification.Reference)
	default:
		return ErrTransactionNotFound
	}
}
