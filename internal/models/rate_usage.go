package models

import "time"

type ActionType string

const (
	ActionTypeTip      ActionType = "tip"
	ActionTypeRain     ActionType = "rain"
	ActionTypeWithdraw ActionType = "withdrawal"
)

// RateUsageRecord tracks a user's rolling usage of one action type inside the
// current daily window. Created lazily on first use, reset in place when the
// window expires, never deleted. The version column backs the optimistic
// check-and-reserve in the rate guard.
type RateUsageRecord struct {
	ID           uint       `gorm:"primarykey"`
	UserID       uint       `gorm:"uniqueIndex:idx_rate_user_action;not null"`
	ActionType   ActionType `gorm:"uniqueIndex:idx_rate_user_action;type:varchar(30);not null"`
	WindowStart  time.Time  `gorm:"not null"`
	UsedCount    int        `gorm:"not null;default:0"`
	UsedSum      int64      `gorm:"not null;default:0"`
	LastActionAt time.Time
	Version      int `gorm:"default:1"`
}
