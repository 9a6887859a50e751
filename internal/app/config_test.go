package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udms-pro/udms/internal/shared"
	_ "github.com/udms-pro/udms/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "udms_session", cfg.SessionKey)
	assert.Equal(t, "theme", cfg.ThemeKey)
	assert.Equal(t, 100, cfg.AuditCapacity)
	assert.Equal(t, 6*time.Second, cfg.NotificationTTL)
	assert.Equal(t, 12*time.Second, cfg.TelemetryInterval)
	assert.InDelta(t, 0.15, cfg.TelemetryProbability, 1e-9)
	assert.False(t, cfg.NotifyRelay)

	tabs, err := cfg.LockdownTabs()
	require.NoError(t, err)
	assert.Equal(t, []shared.Tab{shared.TabDashboard, shared.TabAssistant}, tabs)
}

func TestLoadConfigRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownLockdownTab(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("LOCKDOWN_ALLOW", "dashboard,armory")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "armory")
}

func TestLoadConfigRejectsProbability(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("TELEMETRY_PROBABILITY", "1.5")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestIsProduction(t *testing.T) {
	var nilCfg *Config
	assert.False(t, nilCfg.IsProduction())
	assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
}

func TestInTestMode(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("Warning").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}
