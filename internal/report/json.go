package report

import (
	"encoding/json"
	"io"

	"github.com/hyperifyio/scamdar/internal/scan"
)

// JSONWriter emits the outcome contract, adding the verdict band on success.
type JSONWriter struct {
	out io.Writer
}

func NewJSONWriter(out io.Writer) *JSONWriter { return &JSONWriter{out: out} }

type jsonOutcome struct {
	scan.Outcome
	Band Band `json:"band,omitempty"`
}

func (w *JSONWriter) Write(o scan.Outcome) error {
	v := jsonOutcome{Outcome: o}
	if o.Success && o.Score != nil {
		v.Band = VerdictFor(*o.Score).Band
	}
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
