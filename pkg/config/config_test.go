package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.toml")
	content := `
[server]
port = "9100"

[planner]
default_budget = 250
max_budget = 500
workers = 3
timeout = "5s"
default_policy = "priority_first"

[maintenance]
retention_days = 7
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PLANNER_WORKERS", "6")
	t.Setenv("DATABASE_URL", "postgres://planner@localhost/planner")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Errorf("Expected port 9100, got %s", cfg.Server.Port)
	}
	if cfg.Planner.DefaultBudget != 250 || cfg.Planner.MaxBudget != 500 {
		t.Errorf("Unexpected budgets: %+v", cfg.Planner)
	}
	if cfg.Planner.Workers != 6 {
		t.Errorf("Expected environment to override workers to 6, got %d", cfg.Planner.Workers)
	}
	if cfg.Planner.Timeout.Duration != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %s", cfg.Planner.Timeout)
	}
	if cfg.Database.URL == "" || cfg.Database.Path != "planner.db" {
		t.Errorf("Unexpected database config: %+v", cfg.Database)
	}
	if cfg.Maintenance.RetentionDays != 7 || cfg.Maintenance.Schedule == "" {
		t.Errorf("Unexpected maintenance config: %+v", cfg.Maintenance)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("Expected error for an explicit missing file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "planner.toml")
	if err := os.WriteFile(path, []byte("[planner]\ndefault_budget = 10\nmax_budget = 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("Expected error when the default budget exceeds the max budget")
	}

	if err := os.WriteFile(path, []byte("[planner]\ndefault_budget = 10\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Expected a valid config, got %v", err)
	}
	t.Setenv("PLANNER_TIMEOUT", "soon")
	if _, err := Load(path); err == nil {
		t.Errorf("Expected error for an invalid PLANNER_TIMEOUT")
	}
}
