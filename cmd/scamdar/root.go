package main

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/scamdar/internal/app"
)

// errScanFailed marks a completed run whose outcome was unsuccessful. The
// report has already been written, so main only sets the exit status.
var errScanFailed = errors.New("scan failed")

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scamdar",
		Short: "Score web pages for scam risk",
		Long: `Scamdar loads a web page, extracts its visible text, links, forms and
metadata, and asks an OpenAI-compatible model to rate the likelihood that
the page is a scam on a scale from 0 (safe) to 100 (scam).`,
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(verbose)
			envFiles, _ := cmd.Flags().GetStringSlice("env-file")
			return app.LoadEnvFiles(envFiles...)
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default: $XDG_CONFIG_HOME/scamdar/config.yaml)")
	cmd.PersistentFlags().StringSlice("env-file", []string{".env"}, "Dotenv files to load; later files override earlier ones")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())
	return cmd
}

func setupLogging(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadConfig layers flags that were set explicitly over the environment, the
// config file and finally the built-in defaults.
func loadConfig(cmd *cobra.Command) (app.Config, error) {
	var cfg app.Config
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	dur := func(name string, dst *time.Duration) {
		if f.Changed(name) {
			*dst, _ = f.GetDuration(name)
		}
	}
	str("config", &cfg.ConfigPath)
	str("model", &cfg.LLMModel)
	str("llm-base", &cfg.LLMBaseURL)
	str("api-key", &cfg.LLMAPIKey)
	str("mode", &cfg.Mode)
	str("user-agent", &cfg.UserAgent)
	str("format", &cfg.Format)
	str("output", &cfg.OutputPath)
	str("listen", &cfg.ListenAddr)
	str("redis-addr", &cfg.RedisAddr)
	dur("model-timeout", &cfg.ModelTimeout)
	dur("navigate-timeout", &cfg.NavigateTimeout)
	if f.Changed("no-sandbox") {
		cfg.NoSandbox, _ = f.GetBool("no-sandbox")
	}
	cfg.Verbose, _ = f.GetBool("verbose")

	app.ApplyEnvToConfig(&cfg)
	if err := app.LoadConfig(&cfg); err != nil {
		return cfg, err
	}
	app.ApplyDefaults(&cfg)
	return cfg, app.ValidateConfig(cfg)
}

// addModelFlags registers the flags shared by scan and serve.
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "Model identifier (default google/gemini-2.5-flash)")
	cmd.Flags().String("llm-base", "", "OpenAI-compatible base URL (default OpenRouter)")
	cmd.Flags().String("api-key", "", "API key; also read from OPENROUTER_API_KEY or LLM_API_KEY")
	cmd.Flags().StringP("mode", "m", "", "Page loading mode: browser or static")
	cmd.Flags().String("user-agent", "", "User-Agent for page loads")
	cmd.Flags().Bool("no-sandbox", false, "Run Chrome without its sandbox (containers)")
	cmd.Flags().Duration("model-timeout", 0, "Timeout for the model request")
	cmd.Flags().Duration("navigate-timeout", 0, "Timeout for loading the page")
}

func exitCode(err error) int {
	if errors.Is(err, errScanFailed) {
		return 2
	}
	return 1
}
