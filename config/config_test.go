package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEconomyConfigDefaults(t *testing.T) {
	os.Unsetenv("USD_CENTS_PER_DGT")

	cfg := LoadEconomyConfig()
	assert.Equal(t, int64(1), cfg.USDCentsPerDGT)
	assert.Equal(t, int64(200), cfg.TipBurnPercent)
	assert.Equal(t, 24*time.Hour, cfg.WithdrawCooldown)
}

func TestLoadEconomyConfigClampsPegRate(t *testing.T) {
	defer os.Unsetenv("USD_CENTS_PER_DGT")

	os.Setenv("USD_CENTS_PER_DGT", "0")
	assert.Equal(t, int64(1), LoadEconomyConfig().USDCentsPerDGT)

	os.Setenv("USD_CENTS_PER_DGT", "-5")
	assert.Equal(t, int64(1), LoadEconomyConfig().USDCentsPerDGT)

	os.Setenv("USD_CENTS_PER_DGT", "3")
	assert.Equal(t, int64(3), LoadEconomyConfig().USDCentsPerDGT)
}
