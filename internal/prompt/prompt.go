// Package prompt renders the fixed scam-evaluation instructions around a page
// summary.
package prompt

import (
	"strconv"
	"strings"

	"github.com/hyperifyio/scamdar/internal/summary"
)

// SystemMessage is sent as the system role on every evaluation request.
const SystemMessage = "You are a website security analyzer that responds only with valid JSON objects. Never include any text outside the JSON response."

const (
	intro    = "You are a website security analyzer. Analyze the following website content for scam indicators and respond with ONLY a valid JSON object."
	criteria = "Analyze for scam indicators: suspicious URLs, phishing patterns, urgency tactics, payment requests, poor grammar, misleading claims, fake urgency, suspicious redirects."
	// outputContract must stay the last block of the prompt.
	outputContract = `IMPORTANT: Respond with ONLY the JSON object below, no additional text or explanation:

{
  "score": <number 0-100, where 0=completely safe, 100=definitely a scam>,
  "motivation": "<detailed explanation of why this score was assigned>"
}`
)

// Build renders the user message. Field values are written as opaque text;
// only line breaks are folded so a value cannot start a new template line.
func Build(s summary.Summary) string {
	var sb strings.Builder
	sb.WriteString(intro)
	sb.WriteString("\n\nWebsite Data:")
	field(&sb, "URL", s.URL)
	field(&sb, "Domain", s.Domain)
	field(&sb, "Title", s.Title)
	field(&sb, "Text Content", s.TextContent)
	field(&sb, "Total Links", strconv.Itoa(s.LinkCount))
	field(&sb, "External Links", strconv.Itoa(s.ExternalLinks))
	field(&sb, "Forms", strconv.Itoa(s.FormCount))
	field(&sb, "Has Payment Forms", strconv.FormatBool(s.HasPaymentForms))
	sb.WriteString("\n\n")
	sb.WriteString(criteria)
	sb.WriteString("\n\n")
	sb.WriteString(outputContract)
	return sb.String()
}

func field(sb *strings.Builder, label, value string) {
	sb.WriteString("\n- ")
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(singleLine(value))
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\u2028", " ", "\u2029", " ")

func singleLine(v string) string {
	return lineBreaks.Replace(v)
}
