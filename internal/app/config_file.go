package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
		Title   string `yaml:"title" json:"title"`
		Referer string `yaml:"referer" json:"referer"`
	} `yaml:"llm" json:"llm"`

	Browser struct {
		Mode      string `yaml:"mode" json:"mode"`
		UserAgent string `yaml:"userAgent" json:"userAgent"`
		NoSandbox bool   `yaml:"noSandbox" json:"noSandbox"`
	} `yaml:"browser" json:"browser"`

	Max struct {
		TextChars    int `yaml:"textChars" json:"textChars"`
		SummaryChars int `yaml:"summaryChars" json:"summaryChars"`
		OutputTokens int `yaml:"outputTokens" json:"outputTokens"`
	} `yaml:"max" json:"max"`

	Timeouts struct {
		Probe    time.Duration `yaml:"probe" json:"probe"`
		Model    time.Duration `yaml:"model" json:"model"`
		Navigate time.Duration `yaml:"navigate" json:"navigate"`
		Fetch    time.Duration `yaml:"fetch" json:"fetch"`
	} `yaml:"timeouts" json:"timeouts"`

	Server struct {
		Listen string `yaml:"listen" json:"listen"`
	} `yaml:"server" json:"server"`

	Redis struct {
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`

	Format  string `yaml:"format" json:"format"`
	Verbose bool   `yaml:"verbose" json:"verbose"`
}

// DefaultConfigPath is $XDG_CONFIG_HOME/scamdar/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "scamdar", "config.yaml")
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// LoadConfig overlays the config file onto cfg. An explicit cfg.ConfigPath
// must exist; the default path is optional.
func LoadConfig(cfg *Config) error {
	path := strings.TrimSpace(cfg.ConfigPath)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	ApplyFileConfig(cfg, fc)
	return nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset/zero in cfg.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setStr(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setStr(&cfg.LLMModel, fc.LLM.Model)
	setStr(&cfg.LLMAPIKey, fc.LLM.APIKey)
	setStr(&cfg.LLMTitle, fc.LLM.Title)
	setStr(&cfg.LLMReferer, fc.LLM.Referer)

	setStr(&cfg.Mode, fc.Browser.Mode)
	setStr(&cfg.UserAgent, fc.Browser.UserAgent)
	if !cfg.NoSandbox && fc.Browser.NoSandbox {
		cfg.NoSandbox = true
	}

	setInt(&cfg.MaxTextChars, fc.Max.TextChars)
	setInt(&cfg.SummaryTextChars, fc.Max.SummaryChars)
	setInt(&cfg.ReservedOutputTokens, fc.Max.OutputTokens)

	setDur(&cfg.ProbeTimeout, fc.Timeouts.Probe)
	setDur(&cfg.ModelTimeout, fc.Timeouts.Model)
	setDur(&cfg.NavigateTimeout, fc.Timeouts.Navigate)
	setDur(&cfg.FetchTimeout, fc.Timeouts.Fetch)

	setStr(&cfg.ListenAddr, fc.Server.Listen)
	setStr(&cfg.RedisAddr, fc.Redis.Addr)
	setStr(&cfg.RedisPassword, fc.Redis.Password)
	setInt(&cfg.RedisDB, fc.Redis.DB)

	setStr(&cfg.Format, fc.Format)
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation. A missing API key is
// not a config error; scans report it as a precondition failure.
func ValidateConfig(cfg Config) error {
	switch cfg.Mode {
	case ModeBrowser, ModeStatic:
	default:
		return fmt.Errorf("config: unknown mode %q (want %s or %s)", cfg.Mode, ModeBrowser, ModeStatic)
	}
	if strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required (or set LLM_MODEL)")
	}
	if cfg.MaxTextChars < 0 || cfg.SummaryTextChars < 0 || cfg.ReservedOutputTokens < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}
