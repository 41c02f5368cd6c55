package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_YAMLFillsUnset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scamdar.yaml")
	yml := `
llm:
  model: file-model
  key: file-key
browser:
  mode: static
max:
  summaryChars: 2000
timeouts:
  model: 20s
redis:
  addr: localhost:6379
format: markdown
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Config{ConfigPath: path, LLMModel: "flag-model"}
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLMModel != "flag-model" {
		t.Fatalf("explicit model overwritten: %q", cfg.LLMModel)
	}
	if cfg.LLMAPIKey != "file-key" || cfg.Mode != ModeStatic || cfg.SummaryTextChars != 2000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.ModelTimeout != 20*time.Second || cfg.RedisAddr != "localhost:6379" || cfg.Format != "markdown" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scamdar.json")
	if err := os.WriteFile(path, []byte(`{"llm":{"base":"http://localhost:8081/v1"},"server":{"listen":":9999"}}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Config{ConfigPath: path}
	if err := LoadConfig(&cfg); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLMBaseURL != "http://localhost:8081/v1" || cfg.ListenAddr != ":9999" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfig_MissingExplicitFileFails(t *testing.T) {
	cfg := Config{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")}
	if err := LoadConfig(&cfg); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	if !strings.HasSuffix(DefaultConfigPath(), filepath.Join("scamdar", "config.yaml")) {
		t.Fatalf("unexpected default path %q", DefaultConfigPath())
	}
}

func TestApplyDefaultsAndValidate(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if cfg.LLMModel != "google/gemini-2.5-flash" || cfg.MaxTextChars != 10_000 || cfg.SummaryTextChars != 5_000 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Mode = "carrier-pigeon"
	if err := ValidateConfig(cfg); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestScanBudget_FollowsTimeouts(t *testing.T) {
	cfg := Config{Mode: ModeBrowser, NavigateTimeout: 30 * time.Second, FetchTimeout: 5 * time.Second, ProbeTimeout: 10 * time.Second, ModelTimeout: 10 * time.Minute}
	if got, want := cfg.ScanBudget(), 30*time.Second+30*time.Second+10*time.Minute; got != want {
		t.Fatalf("browser budget %v, want %v", got, want)
	}
	cfg.Mode = ModeStatic
	if got, want := cfg.ScanBudget(), 5*time.Second+30*time.Second+10*time.Minute; got != want {
		t.Fatalf("static budget %v, want %v", got, want)
	}
}
