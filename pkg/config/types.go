package config

import (
	"fmt"
	"time"
)

// Config is the main configuration struct.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Security   SecurityConfig   `yaml:"security"`
	Relay      RelayConfig      `yaml:"relay"`
	Logging    LoggingConfig    `yaml:"logging"`
	Audit      AuditConfig      `yaml:"audit"`
	Validation ValidationConfig `yaml:"validation"`
}

// ServerConfig holds listen and storage settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds the outer-surface policy.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
}

// RelayConfig tunes the hub, sessions and the op queue. Durations are Go
// duration strings ("54s", "1m").
type RelayConfig struct {
	QueueCapacity  int    `yaml:"queue_capacity"`
	SendBuffer     int    `yaml:"send_buffer"`
	MaxMessageSize int64  `yaml:"max_message_size"`
	PingInterval   string `yaml:"ping_interval"`
	WriteTimeout   string `yaml:"write_timeout"`
	ReadTimeout    string `yaml:"read_timeout"`
	MessageRPS     float64 `yaml:"message_rps"`
	MessageBurst   int     `yaml:"message_burst"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AuditConfig configures the mirror consistency audit runner.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// ValidationConfig holds event payload shape rules.
type ValidationConfig struct {
	Required []string `yaml:"required"`
	MaxLen   []struct {
		Path string `yaml:"path"`
		Max  int    `yaml:"max"`
	} `yaml:"max_len"`
}

// Addr returns the listen address, defaulting to :5000 when unset.
func (c *Config) Addr() string {
	addr := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 5000
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// Duration parses a duration field, returning fallback when empty or
// invalid.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
