package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, EngineChromedp, cfg.Browser.Engine)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.FormVisible.Duration)
	assert.Equal(t, time.Second, cfg.Timeouts.Heartbeat.Duration)
	assert.True(t, cfg.Run.HoldOpenOnFailure)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Browser.Engine = EngineRod
	cfg.Timeouts.FormVisible = Duration{90 * time.Second}
	require.NoError(t, cfg.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, EngineRod, loaded.Browser.Engine)
	assert.Equal(t, 90*time.Second, loaded.Timeouts.FormVisible.Duration)
	assert.Equal(t, cfg.Portal, loaded.Portal)
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timeouts]\nheartbeat = \"5s\"\n"), 0600))

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Heartbeat.Duration)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.FormVisible.Duration)
	assert.Equal(t, "#username[name='Username']", cfg.Selectors.Username)
}

func TestLoadFile_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timeouts]\nheartbeat = \"soon\"\n"), 0600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"unknown engine", func(c *Config) { c.Browser.Engine = "selenium" }, false},
		{"anthropic without key", func(c *Config) { c.Semantic.Provider = ProviderAnthropic }, false},
		{"anthropic with key", func(c *Config) {
			c.Semantic.Provider = ProviderAnthropic
			c.Semantic.APIKey = "sk-test"
		}, true},
		{"zero heartbeat", func(c *Config) { c.Timeouts.Heartbeat = Duration{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
