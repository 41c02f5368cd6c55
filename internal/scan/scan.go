// Package scan sequences one page scan: extraction, summarization, prompt
// construction, the model call and reply parsing.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/scamdar/internal/budget"
	"github.com/hyperifyio/scamdar/internal/extract"
	"github.com/hyperifyio/scamdar/internal/inflight"
	"github.com/hyperifyio/scamdar/internal/llm"
	"github.com/hyperifyio/scamdar/internal/metrics"
	"github.com/hyperifyio/scamdar/internal/prompt"
	"github.com/hyperifyio/scamdar/internal/reply"
	"github.com/hyperifyio/scamdar/internal/summary"
	"github.com/hyperifyio/scamdar/internal/target"
)

// Config holds per-scan limits. Zero values select the defaults.
type Config struct {
	APIKey string
	Model  string
	// SummaryTextChars caps the text handed to the prompt.
	SummaryTextChars int
	// ReservedOutputTokens is set aside for the reply in the budget check.
	ReservedOutputTokens int
	// ProbeTimeout bounds each capability probe and content request.
	ProbeTimeout time.Duration
	// ModelTimeout bounds the model call.
	ModelTimeout time.Duration
}

// Completer performs one system+user model exchange. *llm.Chat implements it.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

var _ Completer = (*llm.Chat)(nil)

// Scanner runs scans. Scans of different keys may run concurrently; a
// second scan of a held key fails fast with inflight.ErrBusy.
type Scanner struct {
	Config  Config
	Model   Completer
	Guard   inflight.Guard
	Metrics *metrics.Recorder
}

// Opener loads the page behind a request and returns its target with a
// cleanup func.
type Opener func(ctx context.Context) (target.Target, func(), error)

// Request identifies one scan. Key is the in-flight identity of the page.
// When Target is nil, Open is called once the key is held, so a busy key
// never loads the page.
type Request struct {
	ID     uuid.UUID
	Key    string
	Target target.Target
	Open   Opener
}

// NewRequest assigns a fresh scan id.
func NewRequest(key string, t target.Target) Request {
	return Request{ID: uuid.New(), Key: key, Target: t}
}

// Scan runs the pipeline and returns the validated result. Failures are
// returned as *StageError.
func (s *Scanner) Scan(ctx context.Context, req Request) (reply.Result, error) {
	start := time.Now()
	end := s.Metrics.Begin()
	defer end()

	logger := log.With().Str("scan", req.ID.String()).Str("key", req.Key).Logger()
	res, err := s.run(ctx, req)
	took := time.Since(start)
	if err != nil {
		stage := StageOf(err)
		s.Metrics.ScanFailed(string(stage), took)
		logger.Warn().Str("stage", string(stage)).Dur("took", took).Err(err).Msg("scan failed")
		return reply.Result{}, err
	}
	s.Metrics.ScanSucceeded(res.Score, took)
	logger.Info().Int("score", res.Score).Dur("took", took).Msg("scan complete")
	return res, nil
}

// Precondition reports whether scans can run at all. Callers that must do
// expensive setup, such as starting a browser, check it first.
func (s *Scanner) Precondition() error {
	if strings.TrimSpace(s.Config.APIKey) == "" {
		return &StageError{Stage: StagePrecondition, Err: ErrNoAPIKey}
	}
	return nil
}

func (s *Scanner) run(ctx context.Context, req Request) (reply.Result, error) {
	if err := s.Precondition(); err != nil {
		return reply.Result{}, err
	}
	if req.Target == nil && req.Open == nil {
		return reply.Result{}, &StageError{Stage: StagePrecondition, Err: &PreconditionError{Reason: "no page to analyze"}}
	}
	if s.Guard != nil {
		release, err := s.Guard.Acquire(ctx, req.Key)
		if err != nil {
			return reply.Result{}, &StageError{Stage: StagePrecondition, Err: err}
		}
		defer release()
	}

	t := req.Target
	if t == nil {
		opened, closeFn, err := req.Open(ctx)
		if err != nil {
			var ee *extract.ExtractionError
			if !errors.As(err, &ee) {
				err = &extract.ExtractionError{Reason: "open page", Err: err}
			}
			return reply.Result{}, &StageError{Stage: StageExtraction, Err: err}
		}
		if closeFn != nil {
			defer closeFn()
		}
		t = opened
	}

	content, err := s.content(ctx, t)
	if err != nil {
		return reply.Result{}, &StageError{Stage: StageExtraction, Err: err}
	}

	sum := summary.Summarize(content, s.Config.SummaryTextChars)
	user := prompt.Build(sum)
	if r := budget.Check(s.Config.Model, prompt.SystemMessage, user, s.Config.ReservedOutputTokens); !r.Fits() {
		log.Warn().Str("stage", "budget").Int("prompt_tokens", r.PromptTokens).Int("context_tokens", r.ContextTokens).Msg("prompt may exceed model context")
	}

	text, err := s.complete(ctx, user)
	if err != nil {
		return reply.Result{}, &StageError{Stage: StageTransport, Err: err}
	}
	res, err := reply.Parse(text)
	if err != nil {
		log.Debug().Str("stage", "parsing").Str("excerpt", reply.Excerpt(text)).Msg("unusable reply")
		return reply.Result{}, &StageError{Stage: StageParsing, Err: err}
	}
	return res, nil
}

// content probes for the capture capability, injects it at most once, and
// requests the page record.
func (s *Scanner) content(ctx context.Context, t target.Target) (extract.PageContent, error) {
	if err := s.withProbeTimeout(ctx, t.Ping); err != nil {
		log.Debug().Str("stage", "extraction").Err(err).Msg("capability missing, injecting")
		if err := s.withProbeTimeout(ctx, t.Inject); err != nil {
			var ie *target.InjectionError
			if !errors.As(err, &ie) {
				err = &target.InjectionError{Err: err}
			}
			return extract.PageContent{}, err
		}
		if err := s.withProbeTimeout(ctx, t.Ping); err != nil {
			return extract.PageContent{}, &extract.ExtractionError{Reason: "content script unavailable after injection", Err: err}
		}
	}

	pctx, cancel := withTimeout(ctx, s.Config.ProbeTimeout)
	defer cancel()
	resp, err := t.Content(pctx)
	if err != nil {
		var ee *extract.ExtractionError
		if errors.As(err, &ee) {
			return extract.PageContent{}, err
		}
		return extract.PageContent{}, &extract.ExtractionError{Reason: "content request", Err: err}
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = "Failed to get page content"
		}
		return extract.PageContent{}, &extract.ExtractionError{Reason: reason}
	}
	return resp.Content, nil
}

func (s *Scanner) complete(ctx context.Context, user string) (string, error) {
	if s.Model == nil {
		return "", &llm.TransportError{Message: "model client not configured"}
	}
	mctx, cancel := withTimeout(ctx, s.Config.ModelTimeout)
	defer cancel()
	text, err := s.Model.Complete(mctx, prompt.SystemMessage, user)
	if err != nil {
		var te *llm.TransportError
		if errors.As(err, &te) {
			return "", err
		}
		return "", &llm.TransportError{Message: err.Error(), Err: err}
	}
	return text, nil
}

func (s *Scanner) withProbeTimeout(ctx context.Context, fn func(context.Context) error) error {
	pctx, cancel := withTimeout(ctx, s.Config.ProbeTimeout)
	defer cancel()
	return fn(pctx)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Outcome is the result contract handed to callers: either a score and
// motivation, or a user-facing error message with the failing stage.
type Outcome struct {
	ID         string `json:"id"`
	URL        string `json:"url,omitempty"`
	Success    bool   `json:"success"`
	Score      *int   `json:"score,omitempty"`
	Motivation string `json:"motivation,omitempty"`
	Error      string `json:"error,omitempty"`
	Stage      Stage  `json:"stage,omitempty"`

	Err error `json:"-"`
}

// Run performs a scan and folds the result into an Outcome. It never fails.
func (s *Scanner) Run(ctx context.Context, req Request) Outcome {
	res, err := s.Scan(ctx, req)
	o := NewOutcome(req.ID, res, err)
	o.URL = req.Key
	return o
}

// NewOutcome builds the caller contract from a scan result.
func NewOutcome(id uuid.UUID, res reply.Result, err error) Outcome {
	o := Outcome{ID: id.String()}
	if err != nil {
		o.Error = fmt.Sprintf("Analysis failed: %s", err.Error())
		o.Stage = StageOf(err)
		o.Err = err
		return o
	}
	score := res.Score
	o.Success = true
	o.Score = &score
	o.Motivation = res.Motivation
	return o
}
