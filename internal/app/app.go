package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/scamdar/internal/extract"
	"github.com/hyperifyio/scamdar/internal/fetch"
	"github.com/hyperifyio/scamdar/internal/inflight"
	"github.com/hyperifyio/scamdar/internal/llm"
	"github.com/hyperifyio/scamdar/internal/metrics"
	"github.com/hyperifyio/scamdar/internal/reply"
	"github.com/hyperifyio/scamdar/internal/report"
	"github.com/hyperifyio/scamdar/internal/scan"
	"github.com/hyperifyio/scamdar/internal/server"
	"github.com/hyperifyio/scamdar/internal/target"
)

// App wires configuration into a scanner, page loader and HTTP service.
type App struct {
	cfg      Config
	scanner  *scan.Scanner
	fetcher  *fetch.Client
	registry *prometheus.Registry
	metrics  *metrics.Recorder
}

// New builds the application. cfg should already have defaults applied.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	provider := llm.NewOpenAIProvider(llm.Settings{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Title:   cfg.LLMTitle,
		Referer: cfg.LLMReferer,
		Timeout: cfg.ModelTimeout,
	})

	var guard inflight.Guard = inflight.NewMemory()
	if cfg.RedisAddr != "" {
		rg := inflight.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		rg.TTL = inflight.LeaseTTL(cfg.ScanBudget())
		guard = rg
		log.Debug().Str("redis", cfg.RedisAddr).Dur("ttl", rg.TTL).Msg("using shared inflight guard")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	a := &App{
		cfg: cfg,
		scanner: &scan.Scanner{
			Config: scan.Config{
				APIKey:               cfg.LLMAPIKey,
				Model:                cfg.LLMModel,
				SummaryTextChars:     cfg.SummaryTextChars,
				ReservedOutputTokens: cfg.ReservedOutputTokens,
				ProbeTimeout:         cfg.ProbeTimeout,
				ModelTimeout:         cfg.ModelTimeout,
			},
			Model: &llm.Chat{
				Client:    provider,
				Model:     cfg.LLMModel,
				MaxTokens: cfg.ReservedOutputTokens,
			},
			Guard:   guard,
			Metrics: rec,
		},
		fetcher: &fetch.Client{
			UserAgent:         cfg.UserAgent,
			MaxAttempts:       2,
			PerRequestTimeout: cfg.FetchTimeout,
		},
		registry: reg,
		metrics:  rec,
	}
	return a, nil
}

func (a *App) extractOptions() extract.Options {
	return extract.Options{MaxTextChars: a.cfg.MaxTextChars, MinFragmentChars: a.cfg.MinFragmentChars}
}

// Open loads pageURL with the configured mode and returns a target and its
// cleanup.
func (a *App) Open(ctx context.Context, pageURL string) (target.Target, func(), error) {
	if _, err := target.CheckURL(pageURL); err != nil {
		return nil, nil, err
	}
	switch a.cfg.Mode {
	case ModeStatic:
		page, err := a.fetcher.Get(ctx, pageURL)
		if err != nil {
			return nil, nil, &extract.ExtractionError{Reason: "fetch page", Err: err}
		}
		return target.NewStaticFromPage(page, extract.HeuristicExtractor{Options: a.extractOptions()}), func() {}, nil
	default:
		b, err := target.OpenBrowser(ctx, pageURL, target.BrowserOptions{
			UserAgent:       a.cfg.UserAgent,
			NoSandbox:       a.cfg.NoSandbox,
			NavigateTimeout: a.cfg.NavigateTimeout,
			Extract:         a.extractOptions(),
		})
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	}
}

// Scan runs a full scan of pageURL. The credential is checked before the
// page is loaded.
func (a *App) Scan(ctx context.Context, pageURL string) scan.Outcome {
	id := uuid.New()
	fail := func(err error) scan.Outcome {
		o := scan.NewOutcome(id, reply.Result{}, err)
		o.URL = pageURL
		return o
	}
	if err := a.scanner.Precondition(); err != nil {
		return fail(err)
	}
	u, err := target.CheckURL(pageURL)
	if err != nil {
		return fail(&scan.StageError{Stage: scan.StageExtraction, Err: err})
	}
	pageURL = u.String()
	return a.scanner.Run(ctx, scan.Request{
		ID:  id,
		Key: target.Key(u),
		Open: func(ctx context.Context) (target.Target, func(), error) {
			return a.Open(ctx, pageURL)
		},
	})
}

// WriteReport renders o in the configured format.
func (a *App) WriteReport(w io.Writer, o scan.Outcome) error {
	rw, err := report.NewWriter(a.cfg.Format, w)
	if err != nil {
		return err
	}
	return rw.Write(o)
}

// Server returns the HTTP service bound to this app.
func (a *App) Server() *server.Server {
	return &server.Server{
		Scanner:     a.scanner,
		Open:        a.Open,
		Metrics:     a.metrics,
		Gatherer:    a.registry,
		ScanTimeout: a.cfg.ScanBudget(),
	}
}

// Serve runs the HTTP service until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           a.Server().Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.cfg.ListenAddr).Msg("scamdar listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
