package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "mode: DRY_RUN\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.PollSeconds != 60 {
		t.Errorf("Expected default poll_seconds 60, got %d", cfg.PollSeconds)
	}
	if cfg.Risk.MaxDailyLoss != 100 {
		t.Errorf("Expected default max_daily_loss 100, got %.2f", cfg.Risk.MaxDailyLoss)
	}
	if cfg.Risk.MaxOpenPositions != 3 {
		t.Errorf("Expected default max_open_positions 3, got %d", cfg.Risk.MaxOpenPositions)
	}
	if cfg.Sizing.Mode != "fixed" {
		t.Errorf("Expected default sizing mode fixed, got %s", cfg.Sizing.Mode)
	}
	if cfg.Execution.MaxRetries != 3 {
		t.Errorf("Expected default max_retries 3, got %d", cfg.Execution.MaxRetries)
	}
	if cfg.Exchange.ClobHost == "" {
		t.Error("Expected default clob_host to be set")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
mode: LIVE
poll_seconds: 15
risk:
  max_daily_loss: 250
  max_open_positions: 7
execution:
  max_retries: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != "LIVE" {
		t.Errorf("Expected mode LIVE, got %s", cfg.Mode)
	}
	if cfg.Risk.MaxDailyLoss != 250 {
		t.Errorf("Expected max_daily_loss 250, got %.2f", cfg.Risk.MaxDailyLoss)
	}
	if cfg.Risk.MaxOpenPositions != 7 {
		t.Errorf("Expected max_open_positions 7, got %d", cfg.Risk.MaxOpenPositions)
	}
	if cfg.Execution.MaxRetries != 5 {
		t.Errorf("Expected max_retries 5, got %d", cfg.Execution.MaxRetries)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	path := writeConfig(t, "mode: YOLO\n")

	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for invalid mode")
	}
}

func TestValidateRejectsBadEntryPrice(t *testing.T) {
	path := writeConfig(t, `
mode: DRY_RUN
risk:
  max_entry_price: 1.5
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for max_entry_price >= 1")
	}
}

func TestValidateRejectsBadSizingMode(t *testing.T) {
	path := writeConfig(t, `
mode: DRY_RUN
sizing:
  mode: martingale
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for unknown sizing mode")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}
