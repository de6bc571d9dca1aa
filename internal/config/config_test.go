package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBudgets(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Campaign.MaxConcurrentCalls)
	assert.Equal(t, "+91", cfg.Campaign.DefaultCountryCode)
	assert.Equal(t, 90*time.Second, cfg.Campaign.Timings.CallSlotDelay.Std())
	assert.Equal(t, 90*time.Second, cfg.Campaign.Timings.PostDialWait.Std())
	assert.Equal(t, 3, cfg.Campaign.Timings.TranscriptFastAttempts)
	assert.Equal(t, 2, cfg.Campaign.Timings.TranscriptExtendedAttempts)
	assert.Equal(t, 3, cfg.Campaign.Timings.LookupRetries)
}

func TestLoadMergesYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
monade:
  base_url: https://api.example.com
campaign:
  max_concurrent_calls: 3
  timings:
    call_slot_delay: 45s
    post_dial_wait: 2m
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://api.example.com", cfg.Monade.BaseURL)
	assert.Equal(t, 3, cfg.Campaign.MaxConcurrentCalls)
	assert.Equal(t, 45*time.Second, cfg.Campaign.Timings.CallSlotDelay.Std())
	assert.Equal(t, 2*time.Minute, cfg.Campaign.Timings.PostDialWait.Std())
	// Untouched keys keep their defaults.
	assert.Equal(t, "vobiz", cfg.Campaign.DefaultTrunk)
	assert.Equal(t, "data", cfg.Storage.DataDir)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Campaign, cfg.Campaign)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("campaign:\n  timings:\n    post_dial_wait: soon\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("MONADE_BASE_URL", "https://env.example.com")
	t.Setenv("MAX_CONCURRENT_CALLS", "2")
	t.Setenv("DEFAULT_COUNTRY_CODE", "+44")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "https://env.example.com", cfg.Monade.BaseURL)
	assert.Equal(t, 2, cfg.Campaign.MaxConcurrentCalls)
	assert.Equal(t, "+44", cfg.Campaign.DefaultCountryCode)
}

func TestEnvIgnoresInvalidConcurrency(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_CALLS", "zero")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Campaign.MaxConcurrentCalls)
}
