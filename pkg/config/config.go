package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flags captures command line flags and which of them were set
// explicitly, so precedence (flags > env > file) can be applied.
type Flags struct {
	ConfigPath string
	Addr       string
	DBPath     string
	LogLevel   string
	Set        map[string]bool
}

// ParseFlags parses the command line.
func ParseFlags() Flags {
	var f Flags
	flag.StringVar(&f.ConfigPath, "config", "", "path to YAML config file")
	flag.StringVar(&f.Addr, "addr", "", "listen address (host:port)")
	flag.StringVar(&f.DBPath, "db", "", "pebble database path")
	flag.StringVar(&f.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	flag.Parse()
	f.Set = map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { f.Set[fl.Name] = true })
	return f
}

// ResolveConfigPath picks the config file path: flag, then
// RELAYCHAT_CONFIG, then ./config.yaml if present.
func ResolveConfigPath(f Flags) string {
	if f.Set["config"] {
		return f.ConfigPath
	}
	if p := os.Getenv("RELAYCHAT_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Load builds the effective configuration: file (if any), overlaid
// with RELAYCHAT_* environment variables, overlaid with flags.
func Load(f Flags) (*Config, string, error) {
	cfg := &Config{}
	source := "defaults"
	if path := ResolveConfigPath(f); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
		source = path
	}
	applyEnv(cfg)
	applyFlags(cfg, f)
	applyDefaults(cfg)
	return cfg, source, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("RELAYCHAT_ADDR"); v != "" {
		host, port, ok := splitAddr(v)
		if ok {
			c.Server.Address = host
			c.Server.Port = port
		}
	}
	if v := os.Getenv("RELAYCHAT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("RELAYCHAT_DB_PATH"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("RELAYCHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RELAYCHAT_CORS_ORIGINS"); v != "" {
		c.Security.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("RELAYCHAT_RATE_RPS"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			c.Security.RateLimit.RPS = n
		}
	}
	if v := os.Getenv("RELAYCHAT_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("RELAYCHAT_IP_WHITELIST"); v != "" {
		c.Security.IPWhitelist = splitList(v)
	}
	if v := os.Getenv("RELAYCHAT_AUDIT_CRON"); v != "" {
		c.Audit.Cron = v
		c.Audit.Enabled = true
	}
	if v := os.Getenv("RELAYCHAT_TLS_CERT"); v != "" {
		c.Server.TLS.CertFile = v
	}
	if v := os.Getenv("RELAYCHAT_TLS_KEY"); v != "" {
		c.Server.TLS.KeyFile = v
	}
}

func applyFlags(c *Config, f Flags) {
	if f.Set["addr"] {
		if host, port, ok := splitAddr(f.Addr); ok {
			c.Server.Address = host
			c.Server.Port = port
		}
	}
	if f.Set["db"] {
		c.Server.DBPath = f.DBPath
	}
	if f.Set["log-level"] {
		c.Logging.Level = f.LogLevel
	}
}

func applyDefaults(c *Config) {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "./data"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if len(c.Security.CORS.AllowedOrigins) == 0 {
		c.Security.CORS.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}
	if c.Audit.Enabled && c.Audit.Cron == "" {
		c.Audit.Cron = "*/5 * * * *"
	}
}

func splitAddr(s string) (string, int, bool) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", 0, false
	}
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return "", 0, false
	}
	return s[:i], port, true
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
