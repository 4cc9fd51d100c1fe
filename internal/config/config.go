package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	TLSCertFile string `mapstructure:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file" yaml:"tls_key_file"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	ChannelName  string `mapstructure:"channel_name" yaml:"channel_name"`

	SessionSecret string        `mapstructure:"session_secret" yaml:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`

	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold" yaml:"inactivity_threshold"`
	ReapInterval        time.Duration `mapstructure:"reap_interval" yaml:"reap_interval"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
// SessionSecret has no default and must be provided.
func Default() Config {
	return Config{
		Addr:                ":8080",
		DatabasePath:        "simplechat.db",
		ChannelName:         "Welcome",
		SessionTTL:          15 * time.Minute,
		InactivityThreshold: 5 * time.Minute,
		ReapInterval:        10 * time.Second,
		ReadHeaderTimeout:   5 * time.Second,
		ShutdownTimeout:     5 * time.Second,
		LogLevel:            "info",
	}
}

// Validate reports missing or inconsistent required values.
// A failed validation is a startup-fatal condition.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.ChannelName == "" {
		return errors.New("channel_name is required")
	}
	if c.SessionSecret == "" {
		return errors.New("session_secret is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.InactivityThreshold <= 0 {
		return errors.New("inactivity_threshold must be positive")
	}
	if c.ReapInterval <= 0 {
		return errors.New("reap_interval must be positive")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

// TLSEnabled reports whether the server should terminate TLS itself.
func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}
