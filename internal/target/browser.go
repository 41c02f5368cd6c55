package target

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/scamdar/internal/extract"
)

//go:embed capture.js
var captureScript string

const (
	pingExpr     = `typeof window.__scamdar === 'object' && window.__scamdar !== null && window.__scamdar.version === 1`
	snapshotExpr = `window.__scamdar.snapshot()`
)

// BrowserOptions configure the headless browser.
type BrowserOptions struct {
	UserAgent string
	// NoSandbox is needed when running as root inside containers.
	NoSandbox bool
	// NavigateTimeout bounds page load. Zero selects 30s.
	NavigateTimeout time.Duration
	Extract         extract.Options
}

// Browser is a single headless Chrome tab opened on one URL.
type Browser struct {
	url     string
	opts    BrowserOptions
	tabCtx  context.Context
	cancels []context.CancelFunc
}

// OpenBrowser starts a headless browser, opens a tab and loads rawURL.
// The caller must Close the returned Browser.
func OpenBrowser(ctx context.Context, rawURL string, opts BrowserOptions) (*Browser, error) {
	u, err := CheckURL(rawURL)
	if err != nil {
		return nil, err
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.DisableGPU,
		chromedp.WindowSize(1280, 800),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox, chromedp.Flag("disable-dev-shm-usage", true))
	}
	// The browser outlives individual calls, so it hangs off a detached context.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		log.Debug().Str("stage", "browser").Msgf(format, args...)
	}))
	b := &Browser{url: u.String(), opts: opts, tabCtx: tabCtx, cancels: []context.CancelFunc{cancelTab, cancelAlloc}}
	// Start the browser on the tab context itself; the first Run owns the
	// process lifetime, so it must not carry a timeout.
	if err := chromedp.Run(tabCtx); err != nil {
		b.Close()
		return nil, &extract.ExtractionError{Reason: "start browser", Err: err}
	}

	timeout := opts.NavigateTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := b.bind(ctx, timeout)
	defer cancel()
	log.Debug().Str("stage", "extraction").Str("url", b.url).Msg("opening tab")
	if err := chromedp.Run(runCtx,
		emulation.SetDeviceMetricsOverride(1280, 800, 1, false),
		chromedp.Navigate(b.url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		b.Close()
		return nil, &extract.ExtractionError{Reason: "load page", Err: err}
	}
	return b, nil
}

// Close shuts down the tab and the browser process.
func (b *Browser) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// bind derives a run context from the tab that is also cancelled with ctx.
func (b *Browser) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(b.tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(b.tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (b *Browser) Ping(ctx context.Context) error {
	runCtx, cancel := b.bind(ctx, 0)
	defer cancel()
	var present bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(pingExpr, &present)); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !present {
		return ErrNotInstalled
	}
	return nil
}

func (b *Browser) Inject(ctx context.Context) error {
	runCtx, cancel := b.bind(ctx, 0)
	defer cancel()
	var ok bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(captureScript, &ok)); err != nil {
		return &InjectionError{Err: err}
	}
	if !ok {
		return &InjectionError{}
	}
	return nil
}

func (b *Browser) Content(ctx context.Context) (ContentResponse, error) {
	runCtx, cancel := b.bind(ctx, 0)
	defer cancel()
	var raw []byte
	err := chromedp.Run(runCtx, chromedp.Evaluate(snapshotExpr, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("content request: %w", err)
	}
	return decodeCapture(raw, b.opts.Extract), nil
}

type capture struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// decodeCapture runs the extractor over a snapshot returned by the capture
// script. Extraction failures are reported in the response, not as errors.
func decodeCapture(raw []byte, opts extract.Options) ContentResponse {
	var c capture
	if err := json.Unmarshal(raw, &c); err != nil {
		return ContentResponse{Error: "malformed snapshot: " + err.Error()}
	}
	content, err := extract.FromSnapshot(extract.Snapshot{URL: c.URL, HTML: []byte(c.HTML), ComputedStyles: true}, opts)
	if err != nil {
		return ContentResponse{Error: err.Error()}
	}
	return ContentResponse{Success: true, Content: content}
}
