package services

import (
	"errors"
	"time"

	"degentalk-backend/config"
	"degentalk-backend/internal/database"
	"degentalk-backend/internal/models"
	"degentalk-backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// rateWindow is the rolling window all daily caps are measured over.
const rateWindow = 24 * time.Hour

type rateLimit struct {
	Cooldown time.Duration
	DailyCap int64
}

// RateGuard enforces per-user cooldowns and rolling daily caps. The
// check-and-increment is a single optimistic read-modify-write keyed by
// (user, action type): two concurrent requests cannot both pass a cap check
// that only one of them should satisfy, because the loser's versioned update
// misses and is re-evaluated against the winner's counters.
type RateGuard struct {
	limits  map[models.ActionType]rateLimit
	retries int
}

func NewRateGuard(cfg config.EconomyConfig) *RateGuard {
	retries := cfg.SettleRetries
	if retries < 1 {
		retries = 1
	}
	return &RateGuard{
		retries: retries,
		limits: map[models.ActionType]rateLimit{
			models.ActionTypeTip:      {Cooldown: cfg.TipCooldown, DailyCap: cfg.TipDailyCap},
			models.ActionTypeRain:     {Cooldown: cfg.RainCooldown, DailyCap: cfg.RainDailyCap},
			models.ActionTypeWithdraw: {Cooldown: cfg.WithdrawCooldown, DailyCap: cfg.WithdrawDailyCap},
		},
	}
}

// Reservation records a successful check-and-reserve so it can be undone if
// the operation it guarded fails later.
type Reservation struct {
	UserID     uint
	ActionType models.ActionType
	Amount     int64

	prevLastAction time.Time
}

// CheckAndReserve validates cooldown and daily cap for one action and, if
// both pass, atomically books the amount against the user's window. On
// rejection no state changes and the error carries the remaining wait or
// allowance.
func (g *RateGuard) CheckAndReserve(userID uint, action models.ActionType, amount int64) (*Reservation, error) {
	limit, ok := g.limits[action]
	if !ok {
		return nil, errors.New("unknown action type")
	}

	for attempt := 0; attempt < g.retries; attempt++ {
		record, err := g.loadOrCreate(userID, action)
		if err != nil {
			return nil, err
		}

		now := time.Now()

		usedSum := record.UsedSum
		usedCount := record.UsedCount
		windowStart := record.WindowStart
		if now.Sub(record.WindowStart) >= rateWindow {
			usedSum = 0
			usedCount = 0
			windowStart = now
		}

		// Cooldown outlives window resets on purpose.
		if limit.Cooldown > 0 && !record.LastActionAt.IsZero() {
			if elapsed := now.Sub(record.LastActionAt); elapsed < limit.Cooldown {
				return nil, &CooldownError{Remaining: limit.Cooldown - elapsed}
			}
		}

		if limit.DailyCap > 0 && usedSum+amount > limit.DailyCap {
			remaining := limit.DailyCap - usedSum
			if remaining < 0 {
				remaining = 0
			}
			return nil, &DailyCapError{Remaining: remaining}
		}

		result := database.DB.Model(&models.RateUsageRecord{}).
			Where("id = ? AND version = ?", record.ID, record.Version).
			Updates(map[string]interface{}{
				"window_start":   windowStart,
				"used_sum":       usedSum + amount,
				"used_count":     usedCount + 1,
				"last_action_at": now,
				"version":        record.Version + 1,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			return &Reservation{
				UserID:         userID,
				ActionType:     action,
				Amount:         amount,
				prevLastAction: record.LastActionAt,
			}, nil
		}
		// Lost the race; re-read and re-evaluate.
	}

	return nil, ErrTransactionFailed
}

// Release undoes a reservation after a post-reservation failure. Counters
// never go negative: if they would, we clamp to zero and log the
// inconsistency instead of corrupting the window.
func (g *RateGuard) Release(res *Reservation) {
	if res == nil {
		return
	}

	for attempt := 0; attempt < g.retries; attempt++ {
		record, err := g.loadOrCreate(res.UserID, res.ActionType)
		if err != nil {
			logger.Log.Error("rate guard release failed",
				zap.Uint("user_id", res.UserID), zap.Error(err))
			return
		}

		newSum := record.UsedSum - res.Amount
		newCount := record.UsedCount - 1
		if newSum < 0 || newCount < 0 {
			logger.Log.Warn("rate usage counters would go negative on release",
				zap.Uint("user_id", res.UserID),
				zap.String("action", string(res.ActionType)),
				zap.Int64("used_sum", record.UsedSum),
				zap.Int64("release_amount", res.Amount))
			if newSum < 0 {
				newSum = 0
			}
			if newCount < 0 {
				newCount = 0
			}
		}

		result := database.DB.Model(&models.RateUsageRecord{}).
			Where("id = ? AND version = ?", record.ID, record.Version).
			Updates(map[string]interface{}{
				"used_sum":       newSum,
				"used_count":     newCount,
				"last_action_at": res.prevLastAction,
				"version":        record.Version + 1,
			})
		if result.Error != nil {
			logger.Log.Error("rate guard release failed",
				zap.Uint("user_id", res.UserID), zap.Error(result.Error))
			return
		}
		if result.RowsAffected == 1 {
			return
		}
	}

	logger.Log.Warn("rate guard release retries exhausted",
		zap.Uint("user_id", res.UserID), zap.String("action", string(res.ActionType)))
}

// RemainingAllowance reports what a user can still spend on an action in the
// current window. Used by the owner projection.
func (g *RateGuard) RemainingAllowance(userID uint, action models.ActionType) (int64, error) {
	limit, ok := g.limits[action]
	if !ok {
		return 0, errors.New("unknown action type")
	}

	var record models.RateUsageRecord
	err := database.DB.Where("user_id = ? AND action_type = ?", userID, action).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return limit.DailyCap, nil
		}
		return 0, err
	}

	if time.Since(record.WindowStart) >= rateWindow {
		return limit.DailyCap, nil
	}
	remaining := limit.DailyCap - record.UsedSum
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (g *RateGuard) loadOrCreate(userID uint, action models.ActionType) (*models.RateUsageRecord, error) {
	var record models.RateUsageRecord
	err := database.DB.Where("user_id = ? AND action_type = ?", userID, action).
		First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record = models.RateUsageRecord{
		UserID:      userID,
		ActionType:  action,
		WindowStart: time.Now(),
		Version:     1,
	}
	if err := database.DB.Create(&record).Error; err != nil {
		// Lost the creation race against a concurrent first action.
		var existing models.RateUsageRecord
		if err2 := database.DB.Where("user_id = ? AND action_type = ?", userID, action).
			First(&existing).Error; err2 == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &record, nil
}
