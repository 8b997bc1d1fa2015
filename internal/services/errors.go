package services

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced by the economy engine. Handlers match on these
// with errors.Is/errors.As and translate them into response codes.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrCooldownActive      = errors.New("cooldown active")
	ErrDailyCapExceeded    = errors.New("daily cap exceeded")
	ErrFeatureDisabled     = errors.New("feature disabled")
	ErrBelowMinimum        = errors.New("amount below minimum")
	ErrAboveMaximum        = errors.New("amount above maximum")
	ErrInvalidRecipient    = errors.New("invalid recipient")
	ErrSelfTip             = errors.New("cannot tip yourself")
	ErrGatewayRejected     = errors.New("gateway rejected")
	ErrGatewayTimeout      = errors.New("gateway timeout")
	ErrWalletFrozen        = errors.New("wallet frozen")
	ErrTransactionFailed   = errors.New("transaction failed")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotSettleable       = errors.New("transaction is not in a settleable state")
	ErrNotSettled          = errors.New("transaction is not settled")
	ErrNotCancellable      = errors.New("transaction is not cancellable")
)

// CooldownError carries the remaining wait so the UI can show a countdown.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, retry in %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// DailyCapError carries the allowance still available in the current window.
type DailyCapError struct {
	Remaining int64
}

func (e *DailyCapError) Error() string {
	return fmt.Sprintf("daily cap exceeded, %d DGT remaining today", e.Remaining)
}

func (e *DailyCapError) Unwrap() error { return ErrDailyCapExceeded }

// FeatureDisabledError carries the gate's denial reason.
type FeatureDisabledError struct {
	Reason string
}

func (e *FeatureDisabledError) Error() string {
	return fmt.Sprintf("feature unavailable: %s", e.Reason)
}

func (e *FeatureDisabledError) Unwrap() error { return ErrFeatureDisabled }
