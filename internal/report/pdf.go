package report

import (
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/scamdar/internal/scan"
)

// PDFWriter renders a one-page PDF. Core fonts only cover cp1252, so text is
// translated and emoji are left out.
type PDFWriter struct {
	out io.Writer
}

func NewPDFWriter(out io.Writer) *PDFWriter { return &PDFWriter{out: out} }

func (w *PDFWriter) Write(o scan.Outcome) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Scamdar Report", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Scamdar Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Scan ID: "+o.ID), "", 1, "L", false, 0, "")
	if o.URL != "" {
		pdf.SetTextColor(0, 0, 200)
		pdf.CellFormat(0, 6, tr(o.URL), "", 1, "L", false, 0, o.URL)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	if !o.Success {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, tr(o.Error), "", "L", false)
		return pdf.Output(w.out)
	}

	v := VerdictFor(*o.Score)
	r, g, b := bandRGB(v.Band)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(r, g, b)
	pdf.CellFormat(0, 8, tr("Score: "+strconv.Itoa(*o.Score)+"/100 ("+v.Label+")"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(v.Message), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Analysis", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 5, tr(o.Motivation), "", "L", false)
	return pdf.Output(w.out)
}

func bandRGB(b Band) (int, int, int) {
	switch b {
	case BandSafe:
		return 0, 128, 0
	case BandModerate:
		return 200, 120, 0
	default:
		return 200, 0, 0
	}
}
