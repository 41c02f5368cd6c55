package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/scamdar/internal/app"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Scan a single page and print its risk report",
		Long: `Scan loads the page, summarizes its content and asks the model for a
scam-risk score and explanation.

Examples:
  # Scan with headless Chrome
  scamdar scan https://example.com

  # Fetch the raw HTML instead of rendering it
  scamdar scan --mode static https://example.com

  # Write a Markdown report
  scamdar scan -f markdown -o report.md https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}
	addModelFlags(cmd)
	cmd.Flags().StringP("format", "f", "", "Report format: text, json, markdown or pdf")
	cmd.Flags().StringP("output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().Bool("quiet", false, "Hide the progress spinner")
	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	done := spin(cmd.ErrOrStderr(), quiet || cfg.Verbose, "Analyzing "+args[0])
	o := a.Scan(ctx, args[0])
	done()

	var out io.Writer = cmd.OutOrStdout()
	if cfg.OutputPath != "" {
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := a.WriteReport(out, o); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if !o.Success {
		return fmt.Errorf("%w: %s", errScanFailed, o.Error)
	}
	return nil
}

// spin shows an indeterminate spinner on w until the returned func is called.
func spin(w io.Writer, disabled bool, desc string) func() {
	if disabled {
		return func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_ = bar.Add(1)
			}
		}
	}()
	return func() {
		cancel()
		<-stopped
		_ = bar.Finish()
	}
}
