package extract

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// HiddenMarkerAttr is set by the in-page capture script on every element
// whose computed style hides it.
const HiddenMarkerAttr = "data-scamdar-hidden"

type visibility struct {
	// computed selects the browser marker over inline style parsing.
	computed bool
}

// hidden reports whether n is display:none, visibility:hidden, opacity:0 or
// carries the hidden attribute.
func (v visibility) hidden(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if hasAttr(n, "hidden") {
		return true
	}
	if v.computed {
		return hasAttr(n, HiddenMarkerAttr)
	}
	decl := parseInlineStyle(attrValue(n, "style"))
	if decl["display"] == "none" {
		return true
	}
	if isZeroOpacity(decl["opacity"]) {
		return true
	}
	return inheritedVisibility(n) == "hidden"
}

// inheritedVisibility walks up the tree because visibility, unlike display
// and opacity, is an inherited property.
func inheritedVisibility(n *html.Node) string {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if v, ok := parseInlineStyle(attrValue(cur, "style"))["visibility"]; ok {
			return v
		}
	}
	return "visible"
}

func isZeroOpacity(v string) bool {
	if v == "" {
		return false
	}
	pct := strings.HasSuffix(v, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err != nil {
		return false
	}
	if pct {
		f /= 100
	}
	return f <= 0
}

// parseInlineStyle turns "a: b; c: d" into a lowercased declaration map.
// Later declarations override earlier ones.
func parseInlineStyle(style string) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(style) == "" {
		return out
	}
	for _, decl := range strings.Split(style, ";") {
		colon := strings.IndexByte(decl, ':')
		if colon <= 0 {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(decl[:colon]))
		val := strings.ToLower(strings.TrimSpace(decl[colon+1:]))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		if prop == "" || val == "" {
			continue
		}
		out[prop] = val
	}
	return out
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
