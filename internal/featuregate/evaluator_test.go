package featuregate

import (
	"testing"

	"degentalk-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func testGates() []models.FeatureGate {
	return []models.FeatureGate{
		{Key: models.FeatureTipping, Enabled: true, MinLevel: 2, RolloutPercent: 100},
		{Key: models.FeatureRain, Enabled: true, MinLevel: 5, RolloutPercent: 100},
		{Key: models.FeatureWithdraw, Enabled: false, MinLevel: 1, RolloutPercent: 100},
		{Key: models.FeatureShop, Enabled: true, MinLevel: 1, DeveloperOnly: true, RolloutPercent: 100},
		{Key: models.FeatureDeposit, Enabled: true, MinLevel: 1, RolloutPercent: 50},
	}
}

func TestHasAccessRuleOrder(t *testing.T) {
	e := NewEvaluator(testGates())

	// Unknown feature
	d := e.HasAccess("teleport", 99, true, 1)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnknownFeature, d.Reason)

	// Disabled beats everything else
	d = e.HasAccess(models.FeatureWithdraw, 99, true, 1)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonDisabled, d.Reason)

	// Developer only
	d = e.HasAccess(models.FeatureShop, 99, false, 1)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonDeveloperOnly, d.Reason)
	d = e.HasAccess(models.FeatureShop, 99, true, 1)
	assert.True(t, d.Allowed)

	// Level requirement
	d = e.HasAccess(models.FeatureTipping, 1, false, 1)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonLevelTooLow, d.Reason)
	d = e.HasAccess(models.FeatureTipping, 2, false, 1)
	assert.True(t, d.Allowed)
}

func TestRolloutDeterminism(t *testing.T) {
	e := NewEvaluator(testGates())

	// The same user must get the same answer on every call.
	for userID := uint(1); userID <= 200; userID++ {
		first := e.HasAccess(models.FeatureDeposit, 10, false, userID)
		for i := 0; i < 10; i++ {
			again := e.HasAccess(models.FeatureDeposit, 10, false, userID)
			assert.Equal(t, first, again)
		}
		// Bucket and decision must agree.
		inRollout := RolloutBucket(userID) < 50
		assert.Equal(t, inRollout, first.Allowed)
		if !first.Allowed {
			assert.Equal(t, ReasonNotInRollout, first.Reason)
		}
	}

	// A fresh evaluator (simulated restart) gives identical answers.
	e2 := NewEvaluator(testGates())
	for userID := uint(1); userID <= 200; userID++ {
		assert.Equal(t,
			e.HasAccess(models.FeatureDeposit, 10, false, userID),
			e2.HasAccess(models.FeatureDeposit, 10, false, userID))
	}
}

func TestRolloutBucketRange(t *testing.T) {
	for userID := uint(0); userID < 1000; userID++ {
		b := RolloutBucket(userID)
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 100)
	}
}

func TestReloadSwapsSnapshot(t *testing.T) {
	e := NewEvaluator(testGates())
	assert.True(t, e.HasAccess(models.FeatureTipping, 5, false, 1).Allowed)

	gates := testGates()
	gates[0].Enabled = false
	e.Reload(gates)

	d := e.HasAccess(models.FeatureTipping, 5, false, 1)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonDisabled, d.Reason)
}
