package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.SessionSecret = "test-secret-change-me"
	return cfg
}

func TestValidateMissingSessionSecret(t *testing.T) {
	cfg := Default()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_secret")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with secret", func(*Config) {}, ""},
		{"missing addr", func(c *Config) { c.Addr = "" }, "addr"},
		{"missing database path", func(c *Config) { c.DatabasePath = "" }, "database_path"},
		{"missing channel name", func(c *Config) { c.ChannelName = "" }, "channel_name"},
		{"zero session ttl", func(c *Config) { c.SessionTTL = 0 }, "session_ttl"},
		{"zero inactivity threshold", func(c *Config) { c.InactivityThreshold = 0 }, "inactivity_threshold"},
		{"zero reap interval", func(c *Config) { c.ReapInterval = 0 }, "reap_interval"},
		{"cert without key", func(c *Config) { c.TLSCertFile = "server.crt" }, "must be set together"},
		{"key without cert", func(c *Config) { c.TLSKeyFile = "server.key" }, "must be set together"},
		{"cert and key together", func(c *Config) {
			c.TLSCertFile = "server.crt"
			c.TLSKeyFile = "server.key"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestTLSEnabled(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.TLSEnabled())

	cfg.TLSCertFile = "server.crt"
	cfg.TLSKeyFile = "server.key"
	assert.True(t, cfg.TLSEnabled())
}
