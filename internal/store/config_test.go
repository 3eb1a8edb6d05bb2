package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Exchange != "NSE" {
		t.Errorf("Expected exchange NSE, got %s", cfg.Exchange)
	}
	if cfg.Finalize.Multiplier != 1.5 {
		t.Errorf("Expected multiplier 1.5, got %f", cfg.Finalize.Multiplier)
	}
	if cfg.SessionFile != "kite_session.json" {
		t.Errorf("Expected default session file, got %s", cfg.SessionFile)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	p := writeConfig(t, `
mode: DRY_RUN
exchange: BSE
finalize:
  metric: ATR
  multiplier: 2
  strategy: EQUAL_DISTRIBUTION
  capital: 50000
scanner:
  table: scans
`)
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Mode != "DRY_RUN" || cfg.Exchange != "BSE" {
		t.Errorf("Expected DRY_RUN/BSE, got %s/%s", cfg.Mode, cfg.Exchange)
	}
	if cfg.Finalize.Capital != 50000 || cfg.Finalize.Metric != "ATR" {
		t.Errorf("Unexpected finalize section: %+v", cfg.Finalize)
	}
	if cfg.Scanner.Table != "scans" || cfg.Scanner.URLEnv != "SUPABASE_URL" {
		t.Errorf("Unexpected scanner section: %+v", cfg.Scanner)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"mode":     "mode: PAPER\n",
		"metric":   "finalize:\n  metric: VWAP\n",
		"strategy": "finalize:\n  strategy: ALL_IN\n",
		"capital":  "finalize:\n  strategy: EQUAL_DISTRIBUTION\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), "config validation failed") {
				t.Errorf("Expected wrapped validation error, got %v", err)
			}
		})
	}
}
