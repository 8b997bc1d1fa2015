package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"degentalk-backend/internal/utils"
	"degentalk-backend/pkg/logger"

	"go.uber.org/zap"
)

// HTTPXPReporter pushes economic events to the external leveling service.
// Strictly fire-and-forget: failures are logged and swallowed, never
// propagated into the ledger path.
type HTTPXPReporter struct {
	BaseURL string
	client  *http.Client
}

func NewHTTPXPReporter(baseURL string) *HTTPXPReporter {
	return &HTTPXPReporter{
		BaseURL: baseURL,
		client:  utils.NewHTTPClient(5 * time.Second),
	}
}

func (r *HTTPXPReporter) ReportEconomicEvent(userID uint, eventType string, amount int64) {
	payload, err := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"event":   eventType,
		"amount":  amount,
	})
	if err != nil {
		return
	}

	resp, err := r.client.Post(r.BaseURL+"/events/economic", "application/json", bytes.NewReader(payload))
	if err != nil {
		logger.Log.Warn("xp event report failed",
			zap.Uint("user_id", userID), zap.String("event", eventType), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Log.Warn("xp event report rejected",
			zap.Uint("user_id", userID), zap.Int("status", resp.StatusCode))
	}
}

// HTTPEligibilityChecker asks the external KYC service whether a user may
// withdraw. Unlike XP reporting this is synchronous and its errors matter.
type HTTPEligibilityChecker struct {
	BaseURL string
	client  *http.Client
}

func NewHTTPEligibilityChecker(baseURL string) *HTTPEligibilityChecker {
	return &HTTPEligibilityChecker{
		BaseURL: baseURL,
		client:  utils.NewHTTPClient(10 * time.Second),
	}
}

func (c *HTTPEligibilityChecker) IsEligibleForWithdrawal(userID uint) (bool, error) {
	resp, err := c.client.Get(fmt.Sprintf("%s/eligibility/withdrawal/%d", c.BaseURL, userID))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var decoded struct {
		Eligible bool `json:"eligible"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, err
	}
	return decoded.Eligible, nil
}

// NoopXPReporter is used when no leveling service is configured.
type NoopXPReporter struct{}

func (NoopXPReporter) ReportEconomicEvent(uint, string, int64) {}

// AlwaysEligible is the permissive default when no KYC service is configured.
type AlwaysEligible struct{}

func (AlwaysEligible) IsEligibleForWithdrawal(uint) (bool, error) { return true, nil }
