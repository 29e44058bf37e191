package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoadFile verifies YAML parsing into the typed config.
func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1
  port: 6001
  db_path: /tmp/relay-data
security:
  cors:
    allowed_origins: ["https://chat.example.com"]
  rate_limit:
    rps: 5
    burst: 10
relay:
  queue_capacity: 128
  ping_interval: 30s
logging:
  level: debug
audit:
  enabled: true
  cron: "*/10 * * * *"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:6001" {
		t.Fatalf("addr %q", cfg.Addr())
	}
	if cfg.Server.DBPath != "/tmp/relay-data" {
		t.Fatalf("db path %q", cfg.Server.DBPath)
	}
	if len(cfg.Security.CORS.AllowedOrigins) != 1 {
		t.Fatalf("origins %+v", cfg.Security.CORS.AllowedOrigins)
	}
	if cfg.Relay.QueueCapacity != 128 {
		t.Fatalf("queue capacity %d", cfg.Relay.QueueCapacity)
	}
	if got := Duration(cfg.Relay.PingInterval, time.Minute); got != 30*time.Second {
		t.Fatalf("ping interval %v", got)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Cron != "*/10 * * * *" {
		t.Fatalf("audit %+v", cfg.Audit)
	}
}

// TestLoadPrecedence verifies flags beat env, env beats file.
func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 6001
  db_path: /from/file
logging:
  level: warn
`)
	t.Setenv("RELAYCHAT_DB_PATH", "/from/env")
	t.Setenv("RELAYCHAT_LOG_LEVEL", "info")

	f := Flags{
		ConfigPath: path,
		LogLevel:   "debug",
		Set:        map[string]bool{"config": true, "log-level": true},
	}
	cfg, source, err := Load(f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if source != path {
		t.Fatalf("source %q", source)
	}
	if cfg.Server.DBPath != "/from/env" {
		t.Fatalf("env should beat file: %q", cfg.Server.DBPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("flag should beat env: %q", cfg.Logging.Level)
	}
	if cfg.Server.Port != 6001 {
		t.Fatalf("file value should survive: %d", cfg.Server.Port)
	}
}

// TestDefaults verifies the fallbacks applied with no inputs at all.
func TestDefaults(t *testing.T) {
	cfg, source, err := Load(Flags{Set: map[string]bool{}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if source != "defaults" {
		t.Fatalf("source %q", source)
	}
	if cfg.Addr() != ":5000" {
		t.Fatalf("default addr %q", cfg.Addr())
	}
	if cfg.Server.DBPath != "./data" {
		t.Fatalf("default db path %q", cfg.Server.DBPath)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default log level %q", cfg.Logging.Level)
	}
}

// TestEnvAddr verifies RELAYCHAT_ADDR host:port splitting.
func TestEnvAddr(t *testing.T) {
	t.Setenv("RELAYCHAT_ADDR", "0.0.0.0:9000")
	cfg, _, err := Load(Flags{Set: map[string]bool{}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:9000" {
		t.Fatalf("addr %q", cfg.Addr())
	}
}
