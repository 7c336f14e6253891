package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadService_MissingFile(t *testing.T) {
	cfg, err := LoadService(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadService() error = %v; missing file must fall back to defaults", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want info", cfg.LogLevel)
	}
	if cfg.Olympiad.CompPeriod.Std() != 6*time.Hour {
		t.Errorf("CompPeriod = %v; want 6h", cfg.Olympiad.CompPeriod.Std())
	}
}

func TestLoadService_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "olympiad.yaml")
	data := `
log_level: debug
metrics_addr: ":9999"
database:
  host: db.example.com
  port: 5433
olympiad:
  legacy_ruleset: true
  comp_period: 4h
  drain_timeout: 5m
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadService(path)
	if err != nil {
		t.Fatalf("LoadService() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want debug", cfg.LogLevel)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("Database.Host = %q", cfg.Database.Host)
	}
	if !cfg.Olympiad.LegacyRuleset {
		t.Error("LegacyRuleset = false; want true")
	}
	if cfg.Olympiad.CompPeriod.Std() != 4*time.Hour {
		t.Errorf("CompPeriod = %v; want 4h", cfg.Olympiad.CompPeriod.Std())
	}
	if cfg.Olympiad.DrainTimeout.Std() != 5*time.Minute {
		t.Errorf("DrainTimeout = %v; want 5m", cfg.Olympiad.DrainTimeout.Std())
	}
	// Не указанные ключи сохраняют дефолты.
	if cfg.Olympiad.CompStartHour != 18 {
		t.Errorf("CompStartHour = %d; want default 18", cfg.Olympiad.CompStartHour)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("Database.Port = %d; want 5433", cfg.Database.Port)
	}
}

func TestLoadService_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("log_level: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadService(path); err == nil {
		t.Error("LoadService() on malformed yaml must return error")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 5432,
		User: "u", Password: "p", DBName: "olympiad", SSLMode: "disable",
	}
	want := "postgres://u:p@localhost:5432/olympiad?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q; want %q", got, want)
	}
}
