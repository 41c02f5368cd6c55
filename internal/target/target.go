// Package target provides the documents a scan extracts content from: a
// live headless browser tab or an already downloaded HTML document.
package target

import (
	"context"
	"net/url"
	"strings"

	"github.com/hyperifyio/scamdar/internal/extract"
)

// Target is an extraction target. Ping succeeds only when the capture
// capability is present; Inject installs it; Content returns the record.
type Target interface {
	Ping(ctx context.Context) error
	Inject(ctx context.Context) error
	Content(ctx context.Context) (ContentResponse, error)
}

// ContentResponse is the reply to a content request. Exactly one of Content
// and Error is meaningful, selected by Success.
type ContentResponse struct {
	Success bool                `json:"success"`
	Content extract.PageContent `json:"content"`
	Error   string              `json:"error,omitempty"`
}

// CheckURL refuses pages no capability can be installed into: browser
// internal pages, extension pages and anything that is not http(s).
func CheckURL(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	for _, prefix := range []string{"chrome://", "chrome-extension://", "about:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return nil, &extract.ExtractionError{Reason: "cannot analyze browser internal pages"}
		}
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, &extract.ExtractionError{Reason: "invalid url", Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &extract.ExtractionError{Reason: "unsupported url " + strings.TrimSpace(raw)}
	}
	return u, nil
}

// Key normalizes a URL into the identity used for in-flight exclusion:
// scheme and host lowercased, fragment dropped.
func Key(u *url.URL) string {
	k := *u
	k.Scheme = strings.ToLower(k.Scheme)
	k.Host = strings.ToLower(k.Host)
	k.Fragment = ""
	k.RawFragment = ""
	if k.Path == "" {
		k.Path = "/"
	}
	return k.String()
}
