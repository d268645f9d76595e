package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pointsd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("AUDIT_INTERVAL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if cfg.DatabaseURL != def.DatabaseURL || cfg.LogLevel != def.LogLevel || cfg.AuditInterval != def.AuditInterval {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://points:pw@db:5432/points
log_level: debug
audit_interval: 30m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://points:pw@db:5432/points" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.AuditInterval != 30*time.Minute {
		t.Errorf("AuditInterval = %s", cfg.AuditInterval)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://from-file
audit_interval: 30m
`)
	t.Setenv("DATABASE_URL", "postgres://from-env")
	t.Setenv("AUDIT_INTERVAL", "15m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://from-env" {
		t.Errorf("DatabaseURL = %q, want env value", cfg.DatabaseURL)
	}
	if cfg.AuditInterval != 15*time.Minute {
		t.Errorf("AuditInterval = %s, want 15m", cfg.AuditInterval)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	if _, err := Load(writeConfig(t, "audit_interval: soon")); err == nil {
		t.Error("unparseable duration should fail")
	}
	if _, err := Load(writeConfig(t, "audit_interval: -5m")); err == nil {
		t.Error("non-positive interval should fail")
	}
	if _, err := Load(writeConfig(t, "{not yaml")); err == nil {
		t.Error("malformed yaml should fail")
	}
}
