package extract

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultMaxTextChars caps PageContent.Text, counted in code points.
	DefaultMaxTextChars = 10_000
	// DefaultMinFragmentChars is the exclusive lower bound for a kept text fragment.
	DefaultMinFragmentChars = 10
)

// textSelector lists the flow-content elements whose text is collected.
const textSelector = "p, h1, h2, h3, h4, h5, h6, span, div, li, td"

// Snapshot is a serialized document together with the URL it was loaded from.
type Snapshot struct {
	URL  string
	HTML []byte
	// ComputedStyles is true when hidden elements were marked by a live
	// browser (HiddenMarkerAttr). Otherwise visibility is derived from inline
	// style declarations.
	ComputedStyles bool
}

// Options bound the extracted record. Zero values select the defaults.
type Options struct {
	MaxTextChars     int
	MinFragmentChars int
}

func (o Options) withDefaults() Options {
	if o.MaxTextChars <= 0 {
		o.MaxTextChars = DefaultMaxTextChars
	}
	if o.MinFragmentChars <= 0 {
		o.MinFragmentChars = DefaultMinFragmentChars
	}
	return o
}

// FromSnapshot extracts text, links, forms and metadata from the snapshot.
// It never mutates its input and returns an *ExtractionError without a
// partial record when the document cannot be read at all.
func FromSnapshot(s Snapshot, opts Options) (PageContent, error) {
	opts = opts.withDefaults()
	if len(bytes.TrimSpace(s.HTML)) == 0 {
		return PageContent{}, &ExtractionError{Reason: "empty document"}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(s.HTML))
	if err != nil {
		return PageContent{}, &ExtractionError{Reason: "parse document", Err: err}
	}

	base, baseErr := url.Parse(strings.TrimSpace(s.URL))
	content := PageContent{
		URL:   s.URL,
		Title: collapseSpaces(strings.TrimSpace(doc.Find("title").First().Text())),
	}
	if baseErr == nil {
		content.Domain = strings.ToLower(base.Hostname())
		if base.Scheme != "" {
			content.Protocol = strings.ToLower(base.Scheme) + ":"
		}
	} else {
		base = nil
	}

	vis := visibility{computed: s.ComputedStyles}
	content.Text = collectText(doc, vis, opts)
	content.Links = collectLinks(doc, base)
	content.Forms = collectForms(doc)
	content.Metadata = collectMetadata(doc)
	return content, nil
}

func collectText(doc *goquery.Document, vis visibility, opts Options) string {
	var b strings.Builder
	doc.Find(textSelector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if utf8.RuneCountInString(text) <= opts.MinFragmentChars {
			return
		}
		if vis.hidden(sel.Get(0)) {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	})
	return TruncateRunes(b.String(), opts.MaxTextChars)
}

func collectLinks(doc *goquery.Document, base *url.URL) []LinkRecord {
	links := []LinkRecord{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())
		if href == "" || text == "" {
			return
		}
		links = append(links, LinkRecord{Href: href, Text: text, IsExternal: IsExternal(base, href)})
	})
	return links
}

func collectForms(doc *goquery.Document) []FormRecord {
	forms := []FormRecord{}
	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		rec := FormRecord{
			Action: form.AttrOr("action", ""),
			Method: form.AttrOr("method", ""),
			Inputs: []InputRecord{},
		}
		if rec.Method == "" {
			rec.Method = "get"
		}
		form.Find("input, select, textarea").Each(func(_ int, in *goquery.Selection) {
			// Browsers expose the type token lowercased.
			typ := strings.ToLower(strings.TrimSpace(in.AttrOr("type", "")))
			if typ == "" {
				typ = strings.ToLower(goquery.NodeName(in))
			}
			rec.Inputs = append(rec.Inputs, InputRecord{
				Type:        typ,
				Name:        in.AttrOr("name", ""),
				Placeholder: in.AttrOr("placeholder", ""),
			})
		})
		forms = append(forms, rec)
	})
	return forms
}

func collectMetadata(doc *goquery.Document) map[string]string {
	meta := map[string]string{}
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		key := sel.AttrOr("name", "")
		if key == "" {
			key = sel.AttrOr("property", "")
		}
		content := sel.AttrOr("content", "")
		if key != "" && content != "" {
			meta[key] = content
		}
	})
	return meta
}

// IsExternal resolves href against base and compares hostnames. Any
// resolution failure, including a missing or relative base, counts as
// internal.
func IsExternal(base *url.URL, href string) bool {
	if base == nil || !base.IsAbs() || base.Host == "" {
		return false
	}
	ref, err := url.Parse(trimURLSpace(href))
	if err != nil {
		return false
	}
	resolved := base.ResolveReference(ref)
	return !strings.EqualFold(resolved.Hostname(), base.Hostname())
}

// trimURLSpace strips leading and trailing C0 controls and spaces the way
// URL parsers in browsers do.
func trimURLSpace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return r <= 0x20 })
}

// TruncateRunes cuts s to at most max code points. max <= 0 leaves s as is.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
