package featuregate

import (
	"hash/fnv"
	"strconv"
	"sync"

	"degentalk-backend/internal/models"
)

// Denial reasons returned to callers; stable strings the frontend keys off.
const (
	ReasonUnknownFeature = "unknown_feature"
	ReasonDisabled       = "feature_disabled"
	ReasonDeveloperOnly  = "developer_only"
	ReasonLevelTooLow    = "level_too_low"
	ReasonNotInRollout   = "not_in_rollout"
)

type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluator answers capability checks against an immutable snapshot of gate
// rows. Swap in a new snapshot with Reload after admin edits; evaluation
// itself touches no storage.
type Evaluator struct {
	mu    sync.RWMutex
	gates map[string]models.FeatureGate
}

func NewEvaluator(gates []models.FeatureGate) *Evaluator {
	e := &Evaluator{}
	e.Reload(gates)
	return e
}

// Reload replaces the gate snapshot.
func (e *Evaluator) Reload(gates []models.FeatureGate) {
	m := make(map[string]models.FeatureGate, len(gates))
	for _, g := range gates {
		m[g.Key] = g
	}
	e.mu.Lock()
	e.gates = m
	e.mu.Unlock()
}

// HasAccess applies the gate rules in order: unknown, disabled, developer
// only, minimum level, rollout bucket. The rollout bucket is a pure function
// of the user id, so a user's answer never flips between calls or restarts
// without a configuration change.
func (e *Evaluator) HasAccess(featureKey string, userLevel int, isDeveloper bool, userID uint) Decision {
	e.mu.RLock()
	gate, ok := e.gates[featureKey]
	e.mu.RUnlock()

	if !ok {
		return Decision{Allowed: false, Reason: ReasonUnknownFeature}
	}
	if !gate.Enabled {
		return Decision{Allowed: false, Reason: ReasonDisabled}
	}
	if gate.DeveloperOnly && !isDeveloper {
		return Decision{Allowed: false, Reason: ReasonDeveloperOnly}
	}
	if userLevel < gate.MinLevel {
		return Decision{Allowed: false, Reason: ReasonLevelTooLow}
	}
	if gate.RolloutPercent < 100 && RolloutBucket(userID) >= gate.RolloutPercent {
		return Decision{Allowed: false, Reason: ReasonNotInRollout}
	}
	return Decision{Allowed: true}
}

// RolloutBucket maps a user id to a stable 0-99 bucket using FNV-1a over the
// decimal string form of the id. The hash function and modulus are fixed by
// contract; do not change them, or every user's bucket moves.
func RolloutBucket(userID uint) int {
	h := fnv.New32a()
	h.Write([]byte(strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
