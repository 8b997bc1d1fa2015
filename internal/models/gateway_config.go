package models

import (
	"time"

	"gorm.io/datatypes"
)

// GatewayConfig describes one configured settlement gateway. Driver-specific
// settings (endpoint, merchant id, signing key) live in the Config JSON blob;
// the UUID routes inbound webhook callbacks to the right configuration.
type GatewayConfig struct {
	ID        uint           `gorm:"primarykey"`
	UUID      string         `gorm:"uniqueIndex;type:varchar(36);not null"`
	Name      string         `gorm:"type:varchar(100);not null;default:'Settlement Gateway'"`
	Driver    string         `gorm:"type:varchar(50);not null"` // e.g., "dgtpay"
	Config    datatypes.JSON `gorm:"type:json;not null"`
	Enable    bool           `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
