// Package summary reduces an extracted page into the fixed-shape feature set
// sent to the model.
package summary

import "github.com/hyperifyio/scamdar/internal/extract"

// DefaultMaxTextChars is tighter than the extractor cap to leave room for
// the prompt template.
const DefaultMaxTextChars = 5_000

// Summary is a read-only view of a PageContent sized for a model prompt.
type Summary struct {
	URL             string `json:"url"`
	Domain          string `json:"domain"`
	Title           string `json:"title"`
	TextContent     string `json:"text_content"`
	LinkCount       int    `json:"link_count"`
	ExternalLinks   int    `json:"external_links"`
	FormCount       int    `json:"form_count"`
	HasPaymentForms bool   `json:"has_payment_forms"`
}

// Summarize is pure: identical content always yields an identical Summary.
// maxTextChars <= 0 selects DefaultMaxTextChars.
func Summarize(c extract.PageContent, maxTextChars int) Summary {
	if maxTextChars <= 0 {
		maxTextChars = DefaultMaxTextChars
	}
	s := Summary{
		URL:         c.URL,
		Domain:      c.Domain,
		Title:       c.Title,
		TextContent: extract.TruncateRunes(c.Text, maxTextChars),
		LinkCount:   len(c.Links),
		FormCount:   len(c.Forms),
	}
	for _, l := range c.Links {
		if l.IsExternal {
			s.ExternalLinks++
		}
	}
	for _, f := range c.Forms {
		if f.HasPaymentIndicator() {
			s.HasPaymentForms = true
			break
		}
	}
	return s
}
