package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDashboardConfigIsValid(t *testing.T) {
	cfg := DefaultDashboardConfig()
	require.NoError(t, ValidateDashboardConfig(cfg))
	assert.Len(t, cfg.Mismatch.Hypotheses, 6)
	assert.Equal(t, "FLRA1", cfg.Mismatch.RatePlanCode)
	assert.Len(t, cfg.Heatmap.Datasets, 3)
}

func TestValidateDashboardConfigRejectsTickCountOutOfRange(t *testing.T) {
	cfg := DefaultDashboardConfig()
	cfg.Heatmap.TickCount = 30
	assert.Error(t, ValidateDashboardConfig(cfg))

	cfg.Heatmap.TickCount = 9
	assert.Error(t, ValidateDashboardConfig(cfg))
}

func TestValidateDashboardConfigRequiresMaxRangeDays(t *testing.T) {
	cfg := DefaultDashboardConfig()
	cfg.Heatmap.MaxRangeDays = 0
	assert.Error(t, ValidateDashboardConfig(cfg))
}

func TestValidateDashboardConfigRejectsBadHypothesis(t *testing.T) {
	cfg := DefaultDashboardConfig()
	cfg.Mismatch.Hypotheses = append(cfg.Mismatch.Hypotheses, HypothesisConfig{Name: "broken", Factor: 0})
	assert.Error(t, ValidateDashboardConfig(cfg))
}

func TestStaticHolderReturnsStoredConfig(t *testing.T) {
	cfg := DefaultDashboardConfig()
	cfg.Mismatch.HotelID = 42
	holder := NewStaticDashboardConfigHolder(cfg)
	assert.Equal(t, int64(42), holder.Get().Mismatch.HotelID)
}

func TestLoadReadsCacheDriver(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "REDIS")
	t.Setenv("SOURCE_DB_PASSWORD_FILE", " /run/secrets/source ")
	cfg := Load()
	assert.Equal(t, CacheDriverRedis, cfg.Cache.Driver)
	assert.Equal(t, "/run/secrets/source", cfg.Source.PasswordFile)

	t.Setenv("CACHE_DRIVER", "bogus")
	assert.Equal(t, CacheDriverMemory, Load().Cache.Driver)
}
