package models

import "time"

// Feature keys known to the economy.
const (
	FeatureTipping  = "tipping"
	FeatureRain     = "rain"
	FeatureDeposit  = "deposit"
	FeatureWithdraw = "withdraw"
	FeatureShop     = "shop"
)

// FeatureGate is configuration, not user data: seeded at startup, editable by
// admins, read into the evaluator snapshot consulted at decision time.
// RolloutPercent of 100 means everyone past the other checks is allowed.
type FeatureGate struct {
	ID             uint   `gorm:"primarykey"`
	Key            string `gorm:"uniqueIndex;type:varchar(50);not null"`
	Enabled        bool   `gorm:"not null;default:true"`
	MinLevel       int    `gorm:"not null;default:1"`
	DeveloperOnly  bool   `gorm:"not null;default:false"`
	RolloutPercent int    `gorm:"not null;default:100"`
	UpdatedAt      time.Time
}
