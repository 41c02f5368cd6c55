package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/hyperifyio/scamdar/internal/scan"
)

// MarkdownWriter renders the outcome as a GitHub-flavored Markdown document.
type MarkdownWriter struct {
	out io.Writer
}

func NewMarkdownWriter(out io.Writer) *MarkdownWriter { return &MarkdownWriter{out: out} }

func (w *MarkdownWriter) Write(o scan.Outcome) error {
	md := markdown.NewMarkdown(w.out)
	md.H1("Scamdar Report")
	md.PlainText("")

	rows := [][]string{{"Scan ID", "`" + o.ID + "`"}}
	if o.URL != "" {
		rows = append(rows, []string{"Page", o.URL})
	}
	if !o.Success {
		rows = append(rows, []string{"Status", "❌ Failed (" + string(o.Stage) + ")"})
		md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
		md.PlainText("")
		md.Cautionf("%s", o.Error)
		return md.Build()
	}

	v := VerdictFor(*o.Score)
	rows = append(rows,
		[]string{"Score", strconv.Itoa(*o.Score) + "/100"},
		[]string{"Verdict", v.Icon() + " " + v.Label},
	)
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	switch v.Band {
	case BandHigh:
		md.Cautionf("%s", v.Message)
	case BandModerate:
		md.Warningf("%s", v.Message)
	default:
		md.Tip(v.Message)
	}
	md.PlainText("")

	md.H2("Analysis")
	md.PlainText("")
	md.PlainText(o.Motivation)
	return md.Build()
}
