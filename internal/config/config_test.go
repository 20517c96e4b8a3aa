package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("BRIEFCAST_CONFIG", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg := Load()

	if cfg.Scoring.SelectionLimit != 6 {
		t.Errorf("selection limit = %d, want 6", cfg.Scoring.SelectionLimit)
	}
	if cfg.Generation.MaxAttempts != 2 {
		t.Errorf("max attempts = %d, want 2", cfg.Generation.MaxAttempts)
	}
	if len(cfg.Sources) == 0 {
		t.Fatal("default source list is empty")
	}
	for _, s := range cfg.DomainSources() {
		if !s.Enabled {
			t.Errorf("default source %q is disabled", s.Name)
		}
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
scoring:
  selectionLimit: 3
  weights:
    shock: 0.5
fetch:
  hoursFilter: 12
sources:
  - name: custom-feed
    url: https://feeds.example.org/custom
  - name: muted-feed
    url: https://feeds.example.org/muted
    disabled: true
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BRIEFCAST_CONFIG", path)
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Load()

	if cfg.Scoring.SelectionLimit != 3 {
		t.Errorf("selection limit = %d, want 3", cfg.Scoring.SelectionLimit)
	}
	if cfg.Scoring.Weights["shock"] != 0.5 {
		t.Errorf("shock weight = %v, want 0.5", cfg.Scoring.Weights["shock"])
	}
	if cfg.Fetch.HoursFilter != 12 {
		t.Errorf("hours filter = %d, want 12", cfg.Fetch.HoursFilter)
	}
	// Untouched sections keep their defaults.
	if cfg.Generation.Endpoint == "" || cfg.Fetch.Concurrency != 5 {
		t.Error("defaults lost during merge")
	}

	sources := cfg.DomainSources()
	if len(sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(sources))
	}
	if !sources[0].Enabled || sources[1].Enabled {
		t.Errorf("enabled flags = %v/%v, want true/false", sources[0].Enabled, sources[1].Enabled)
	}
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
generation:
  apiKey: from-file
checkpoints:
  path: /var/lib/briefcast/file.db
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BRIEFCAST_CONFIG", path)
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("BRIEFCAST_CHECKPOINT_PATH", "/tmp/env.db")

	cfg := Load()

	if cfg.Generation.APIKey != "from-env" {
		t.Errorf("api key = %q, want the env value", cfg.Generation.APIKey)
	}
	if cfg.Checkpoints.Path != "/tmp/env.db" {
		t.Errorf("checkpoint path = %q, want the env value", cfg.Checkpoints.Path)
	}
}
