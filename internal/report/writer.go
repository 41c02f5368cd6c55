package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/hyperifyio/scamdar/internal/scan"
)

// Writer renders one scan outcome.
type Writer interface {
	Write(o scan.Outcome) error
}

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// NewWriter returns the writer for format.
func NewWriter(format string, out io.Writer) (Writer, error) {
	switch Format(strings.ToLower(strings.TrimSpace(format))) {
	case "", FormatText:
		return NewTextWriter(out), nil
	case FormatJSON:
		return NewJSONWriter(out), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(out), nil
	case FormatPDF:
		return NewPDFWriter(out), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}
