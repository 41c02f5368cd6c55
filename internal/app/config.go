package app

import "time"

// Mode selects how pages are loaded.
const (
	ModeBrowser = "browser"
	ModeStatic  = "static"
)

// Config holds runtime configuration for the application.
type Config struct {
	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	LLMTitle   string
	LLMReferer string

	// Page loading
	Mode      string
	UserAgent string
	NoSandbox bool

	// Extraction / summary bounds
	MaxTextChars         int
	MinFragmentChars     int
	SummaryTextChars     int
	ReservedOutputTokens int

	// Timeouts
	ProbeTimeout    time.Duration
	ModelTimeout    time.Duration
	NavigateTimeout time.Duration
	FetchTimeout    time.Duration

	// Service
	ListenAddr    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Output
	Format     string
	OutputPath string

	// Behavior
	ConfigPath string
	Verbose    bool
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		LLMBaseURL:           "https://openrouter.ai/api/v1",
		LLMModel:             "google/gemini-2.5-flash",
		LLMTitle:             "Scamdar",
		Mode:                 ModeBrowser,
		UserAgent:            "scamdar/" + BuildVersion,
		MaxTextChars:         10_000,
		MinFragmentChars:     10,
		SummaryTextChars:     5_000,
		ReservedOutputTokens: 1_000,
		ProbeTimeout:         10 * time.Second,
		ModelTimeout:         60 * time.Second,
		NavigateTimeout:      30 * time.Second,
		FetchTimeout:         15 * time.Second,
		ListenAddr:           ":8080",
		Format:               "text",
	}
}

// ScanBudget is the longest a single scan can take with the configured
// timeouts: page load, three probes and the model call.
func (c Config) ScanBudget() time.Duration {
	load := c.NavigateTimeout
	if c.Mode == ModeStatic {
		load = c.FetchTimeout
	}
	return load + 3*c.ProbeTimeout + c.ModelTimeout
}

// ApplyDefaults fills every unset field from Defaults.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	d := Defaults()
	setStr(&cfg.LLMBaseURL, d.LLMBaseURL)
	setStr(&cfg.LLMModel, d.LLMModel)
	setStr(&cfg.LLMTitle, d.LLMTitle)
	setStr(&cfg.Mode, d.Mode)
	setStr(&cfg.UserAgent, d.UserAgent)
	setStr(&cfg.ListenAddr, d.ListenAddr)
	setStr(&cfg.Format, d.Format)
	setInt(&cfg.MaxTextChars, d.MaxTextChars)
	setInt(&cfg.MinFragmentChars, d.MinFragmentChars)
	setInt(&cfg.SummaryTextChars, d.SummaryTextChars)
	setInt(&cfg.ReservedOutputTokens, d.ReservedOutputTokens)
	setDur(&cfg.ProbeTimeout, d.ProbeTimeout)
	setDur(&cfg.ModelTimeout, d.ModelTimeout)
	setDur(&cfg.NavigateTimeout, d.NavigateTimeout)
	setDur(&cfg.FetchTimeout, d.FetchTimeout)
}

func setStr(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func setDur(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}
