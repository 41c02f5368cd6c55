package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	setStr(&cfg.LLMBaseURL, os.Getenv("LLM_BASE_URL"))
	setStr(&cfg.LLMModel, os.Getenv("LLM_MODEL"))
	// OPENROUTER_API_KEY wins over the generic LLM_API_KEY.
	setStr(&cfg.LLMAPIKey, os.Getenv("OPENROUTER_API_KEY"))
	setStr(&cfg.LLMAPIKey, os.Getenv("LLM_API_KEY"))

	setStr(&cfg.Mode, os.Getenv("SCAMDAR_MODE"))
	setStr(&cfg.UserAgent, os.Getenv("SCAMDAR_USER_AGENT"))
	setStr(&cfg.ListenAddr, os.Getenv("SCAMDAR_LISTEN"))
	setStr(&cfg.RedisAddr, os.Getenv("SCAMDAR_REDIS_ADDR"))
	setStr(&cfg.RedisPassword, os.Getenv("SCAMDAR_REDIS_PASSWORD"))
	setStr(&cfg.Format, os.Getenv("SCAMDAR_FORMAT"))
	setStr(&cfg.ConfigPath, os.Getenv("SCAMDAR_CONFIG"))

	setIntEnv(&cfg.RedisDB, "SCAMDAR_REDIS_DB")
	setIntEnv(&cfg.MaxTextChars, "SCAMDAR_MAX_TEXT_CHARS")
	setIntEnv(&cfg.SummaryTextChars, "SCAMDAR_SUMMARY_CHARS")

	setDurEnv(&cfg.ProbeTimeout, "SCAMDAR_PROBE_TIMEOUT")
	setDurEnv(&cfg.ModelTimeout, "SCAMDAR_MODEL_TIMEOUT")
	setDurEnv(&cfg.NavigateTimeout, "SCAMDAR_NAVIGATE_TIMEOUT")

	setBoolEnv(&cfg.NoSandbox, "SCAMDAR_NO_SANDBOX")
	setBoolEnv(&cfg.Verbose, "SCAMDAR_VERBOSE")
}

func setIntEnv(dst *int, key string) {
	if *dst != 0 {
		return
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n > 0 {
		*dst = n
	}
}

func setDurEnv(dst *time.Duration, key string) {
	if *dst != 0 {
		return
	}
	if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil && d > 0 {
		*dst = d
	}
}

func setBoolEnv(dst *bool, key string) {
	if *dst {
		return
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		*dst = true
	}
}
