package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if !had {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "ENV", "")
	setEnv(t, "CONFIRM_TTL", "")
	setEnv(t, "FEATURE_RISK_CHAT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultConfirmTTL, cfg.ConfirmTTL)
	assert.Equal(t, DefaultAdapterTimeout, cfg.AdapterTimeout)
	assert.Equal(t, DefaultRiskAPIBase, cfg.RiskAPIBase)
	assert.False(t, cfg.FeatureRiskChat)
	assert.False(t, cfg.OMSLive)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "FEATURE_RISK_CHAT", "1")
	setEnv(t, "CONFIRM_TTL", "120")
	setEnv(t, "ADAPTER_TIMEOUT", "2s")
	setEnv(t, "REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.FeatureRiskChat)
	assert.Equal(t, 120*time.Second, cfg.ConfirmTTL)
	assert.Equal(t, 2*time.Second, cfg.AdapterTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoad_InvalidEnv(t *testing.T) {
	setEnv(t, "ENV", "moon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENV must be one of")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Env:            "development",
			ConfirmTTL:     DefaultConfirmTTL,
			SweepInterval:  DefaultSweepInterval,
			AdapterTimeout: DefaultAdapterTimeout,
			RateLimitRPM:   DefaultRateLimitRPM,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero ttl", mutate: func(c *Config) { c.ConfirmTTL = 0 }, wantErr: "CONFIRM_TTL"},
		{name: "negative adapter timeout", mutate: func(c *Config) { c.AdapterTimeout = -time.Second }, wantErr: "ADAPTER_TIMEOUT"},
		{name: "bad redis scheme", mutate: func(c *Config) { c.RedisURL = "http://localhost" }, wantErr: "REDIS_URL"},
		{name: "live oms without base", mutate: func(c *Config) { c.OMSLive = true }, wantErr: "OMS_BASE"},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimitRPM = 0 }, wantErr: "RATE_LIMIT_RPM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	setEnv(t, "TEST_BOOL", "yes")
	assert.True(t, getEnvBool("TEST_BOOL", false))

	setEnv(t, "TEST_BOOL", "off")
	assert.False(t, getEnvBool("TEST_BOOL", true))

	setEnv(t, "TEST_BOOL", "garbage")
	assert.True(t, getEnvBool("TEST_BOOL", true))
}

func TestGetEnvDuration(t *testing.T) {
	setEnv(t, "TEST_DUR", "45")
	assert.Equal(t, 45*time.Second, getEnvDuration("TEST_DUR", time.Minute))

	setEnv(t, "TEST_DUR", "1m30s")
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DUR", time.Minute))

	setEnv(t, "TEST_DUR", "soon")
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DUR", time.Minute))
}

func TestGetEnvList(t *testing.T) {
	setEnv(t, "TEST_LIST", " https://a.example, ,https://b.example ")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvList("TEST_LIST", nil))

	setEnv(t, "TEST_LIST", "")
	assert.Equal(t, []string{"*"}, getEnvList("TEST_LIST", []string{"*"}))
}
