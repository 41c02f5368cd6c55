package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/hyperifyio/scamdar/internal/scan"
)

// TextWriter prints a short colored summary for terminals.
type TextWriter struct {
	out io.Writer
}

func NewTextWriter(out io.Writer) *TextWriter { return &TextWriter{out: out} }

func (w *TextWriter) Write(o scan.Outcome) error {
	bold := color.New(color.Bold)
	if !o.Success {
		red := color.New(color.FgRed)
		_, err := red.Fprintf(w.out, "%s\n", o.Error)
		return err
	}
	v := VerdictFor(*o.Score)
	c := bandColor(v.Band)
	if o.URL != "" {
		if _, err := fmt.Fprintf(w.out, "%s %s\n", bold.Sprint("Page:"), o.URL); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w.out, "%s %s\n", bold.Sprint("Score:"), c.Sprintf("%d/100 (%s)", *o.Score, v.Label)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.out, "%s %s\n\n", v.Icon(), c.Sprint(v.Message)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w.out, "%s\n%s\n", bold.Sprint("Analysis:"), o.Motivation)
	return err
}

func bandColor(b Band) *color.Color {
	switch b {
	case BandSafe:
		return color.New(color.FgGreen)
	case BandModerate:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}
