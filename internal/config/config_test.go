package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://statsapi.mlb.com", cfg.StatsAPIBaseURL)
	assert.Equal(t, 3, cfg.ClipFeedAttempts)
	assert.Equal(t, 2*time.Second, cfg.ClipFeedBackoff)
	assert.Equal(t, "BOS", cfg.ReferenceTeam)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Contains(t, cfg.DatabaseDSN(), "dbname=game_log")
}

func TestLoad_MissingPassword(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabasePassword: "pw",
			ClipFeedAttempts: 3,
			ReferenceTeam:    "BOS",
			StatsAPITimeout:  time.Second,
			SavantTimeout:    time.Second,
			ClipFeedTimeout:  time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero attempts", func(c *Config) { c.ClipFeedAttempts = 0 }, true},
		{"bad team", func(c *Config) { c.ReferenceTeam = "BOSTON" }, true},
		{"zero timeout", func(c *Config) { c.SavantTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	cfg := &Config{AppEnv: "production"}
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
