package target

import (
	"context"

	"github.com/hyperifyio/scamdar/internal/extract"
	"github.com/hyperifyio/scamdar/internal/fetch"
)

// Static is a target over an already loaded document. The capability is
// always present, so Inject is a no-op.
type Static struct {
	URL       string
	HTML      []byte
	Extractor extract.Extractor
}

// NewStaticFromPage wraps a fetched page using its final URL.
func NewStaticFromPage(p fetch.Page, ex extract.Extractor) *Static {
	return &Static{URL: p.URL, HTML: p.Body, Extractor: ex}
}

func (s *Static) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Static) Inject(ctx context.Context) error { return nil }

func (s *Static) Content(ctx context.Context) (ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return ContentResponse{}, err
	}
	ex := s.Extractor
	if ex == nil {
		ex = extract.HeuristicExtractor{}
	}
	content, err := ex.Extract(extract.Snapshot{URL: s.URL, HTML: s.HTML})
	if err != nil {
		return ContentResponse{Success: false, Error: err.Error()}, nil
	}
	return ContentResponse{Success: true, Content: content}, nil
}
