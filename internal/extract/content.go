package extract

import "strings"

// PageContent is the bounded structural snapshot of a single document.
type PageContent struct {
	URL      string            `json:"url"`
	Domain   string            `json:"domain"`
	Protocol string            `json:"protocol"`
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	Links    []LinkRecord      `json:"links"`
	Forms    []FormRecord      `json:"forms"`
	Metadata map[string]string `json:"metadata"`
}

// LinkRecord is one anchor with an href and visible text.
type LinkRecord struct {
	Href       string `json:"href"`
	Text       string `json:"text"`
	IsExternal bool   `json:"isExternal"`
}

// FormRecord describes a form and its controls in document order.
type FormRecord struct {
	Action string        `json:"action"`
	Method string        `json:"method"`
	Inputs []InputRecord `json:"inputs"`
}

// InputRecord is a single input, select or textarea control.
type InputRecord struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
}

// IsPaymentIndicator reports whether the control looks like it collects
// credentials or card data. The type match is case-sensitive.
func (in InputRecord) IsPaymentIndicator() bool {
	if in.Type == "password" {
		return true
	}
	name := strings.ToLower(in.Name)
	return strings.Contains(name, "card") || strings.Contains(name, "payment")
}

// HasPaymentIndicator reports whether any control of the form is a payment indicator.
func (f FormRecord) HasPaymentIndicator() bool {
	for _, in := range f.Inputs {
		if in.IsPaymentIndicator() {
			return true
		}
	}
	return false
}
