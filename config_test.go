package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

var configKeys = []string{
	"PORT", "APP_ENV", "DATABASE_PATH", "USE_MEMORY_STORE", "JWT_SECRET", "JWT_TTL",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "TRUST_PROXY", "EMAIL_ENABLED", "DEADLINE_SCHEDULE",
	"DEADLINE_TIMEZONE", "ADMIN_EMAIL", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t, configKeys...)
	t.Setenv("JWT_SECRET", "s")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "3001" || cfg.Env != "production" || cfg.DatabasePath != "./tracker.db" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.JWTTTL != 168*time.Hour || cfg.DeadlineSchedule != "0 8 * * *" || cfg.DeadlineTimezone != time.UTC {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.TrustProxy {
		t.Error("Expected X-Forwarded-For to be untrusted by default")
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("Expected wildcard CORS, got %v", cfg.CORSOrigins)
	}
	if cfg.EmailEnabled || cfg.UseMemoryStore || cfg.IsDevelopment() {
		t.Errorf("Unexpected flags: %+v", cfg)
	}
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	clearEnv(t, configKeys...)
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_ENV=development\nPORT=4000\nCORS_ORIGINS=http://a.test, http://b.test\nUSE_MEMORY_STORE=true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "4000" || !cfg.IsDevelopment() || !cfg.UseMemoryStore {
		t.Errorf("Expected values from file, got %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("Unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.JWTSecret == "" {
		t.Error("Expected a development secret")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret in production", map[string]string{}},
		{"bad ttl", map[string]string{"JWT_SECRET": "s", "JWT_TTL": "soon"}},
		{"bad bool", map[string]string{"JWT_SECRET": "s", "EMAIL_ENABLED": "maybe"}},
		{"bad timezone", map[string]string{"JWT_SECRET": "s", "DEADLINE_TIMEZONE": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, configKeys...)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
