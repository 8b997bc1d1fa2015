package services

import (
	"degentalk-backend/internal/database"
	"degentalk-backend/internal/featuregate"
	"degentalk-backend/internal/models"
)

// defaultGates is the seed set for a fresh database. Existing rows are left
// alone so admin edits survive restarts.
var defaultGates = []models.FeatureGate{
	{Key: models.FeatureTipping, Enabled: true, MinLevel: 2, RolloutPercent: 100},
	{Key: models.FeatureRain, Enabled: true, MinLevel: 5, RolloutPercent: 100},
	{Key: models.FeatureDeposit, Enabled: true, MinLevel: 1, RolloutPercent: 100},
	{Key: models.FeatureWithdraw, Enabled: true, MinLevel: 10, RolloutPercent: 100},
	{Key: models.FeatureShop, Enabled: false, MinLevel: 1, DeveloperOnly: true, RolloutPercent: 100},
}

// SeedFeatureGates inserts any missing default gate rows.
func SeedFeatureGates() error {
	for _, gate := range defaultGates {
		var existing models.FeatureGate
		if err := database.DB.Where("key = ?", gate.Key).First(&existing).Error; err == nil {
			continue
		}
		if err := database.DB.Create(&gate).Error; err != nil {
			return err
		}
	}
	return nil
}

// LoadGateEvaluator builds an evaluator from the current gate rows.
func LoadGateEvaluator() (*featuregate.Evaluator, error) {
	gates, err := ListFeatureGates()
	if err != nil {
		return nil, err
	}
	return featuregate.NewEvaluator(gates), nil
}

func ListFeatureGates() ([]models.FeatureGate, error) {
	var gates []models.FeatureGate
	if err := database.DB.Order("key asc").Find(&gates).Error; err != nil {
		return nil, err
	}
	return gates, nil
}

// UpdateFeatureGate edits one gate and reloads the evaluator snapshot so the
// change applies immediately.
func UpdateFeatureGate(key string, updates map[string]interface{}, evaluator *featuregate.Evaluator) (*models.FeatureGate, error) {
	var gate models.FeatureGate
	if err := database.DB.Where("key = ?", key).First(&gate).Error; err != nil {
		return nil, err
	}

	if err := database.DB.Model(&gate).Updates(updates).Error; err != nil {
		return nil, err
	}

	gates, err := ListFeatureGates()
	if err != nil {
		return nil, err
	}
	evaluator.Reload(gates)

	database.DB.Where("key = ?", key).First(&gate)
	return &gate, nil
}
