package featuregate

import "time"

type GateItem struct {
	Key            string    `json:"key"`
	Enabled        bool      `json:"enabled"`
	MinLevel       int       `json:"min_level"`
	DeveloperOnly  bool      `json:"developer_only"`
	RolloutPercent int       `json:"rollout_percent"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type UpdateGateRequest struct {
	Enabled        *bool `json:"enabled,omitempty"`
	MinLevel       *int  `json:"min_level,omitempty" binding:"omitempty,min=0"`
	DeveloperOnly  *bool `json:"developer_only,omitempty"`
	RolloutPercent *int  `json:"rollout_percent,omitempty" binding:"omitempty,min=0,max=100"`
}
