package extract

// Extractor defines a minimal interface for content extraction strategies.
// Implementations can swap heuristics without changing callers.
type Extractor interface {
	// Extract converts a document snapshot into a bounded PageContent.
	// Implementations should be deterministic and avoid side effects.
	Extract(s Snapshot) (PageContent, error)
}

// HeuristicExtractor applies the selector and visibility rules of
// FromSnapshot with the configured bounds.
type HeuristicExtractor struct {
	Options Options
}

func (e HeuristicExtractor) Extract(s Snapshot) (PageContent, error) {
	return FromSnapshot(s, e.Options)
}
