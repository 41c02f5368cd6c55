// Package budget estimates whether a prompt fits a model's context window.
package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultContextTokens is assumed for models not in the table.
const DefaultContextTokens = 8192

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// ModelContextTokens returns an estimated maximum context window for a model.
// OpenRouter style "vendor/model" ids are matched with and without the vendor.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return DefaultContextTokens
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		if v, ok := knownModelMax[name[i+1:]]; ok {
			return v
		}
		name = name[i+1:]
	}
	switch {
	case strings.HasPrefix(name, "gemini-"):
		return 1_048_576
	case strings.HasPrefix(name, "claude-"):
		return 200_000
	case strings.HasSuffix(name, "1m"):
		return 1_000_000
	case strings.HasSuffix(name, "200k"):
		return 200_000
	case strings.HasSuffix(name, "128k"):
		return 128_000
	case strings.Contains(name, "-mini"):
		return 128_000
	}
	return DefaultContextTokens
}

// HeadroomTokens is the larger of 5% of the model context or 512 tokens,
// covering tokenizer error and message framing.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// Report is the outcome of a budget check.
type Report struct {
	PromptTokens  int
	ContextTokens int
	Reserved      int
	Remaining     int
}

// Fits reports whether the prompt leaves a positive margin.
func (r Report) Fits() bool { return r.Remaining > 0 }

// Check estimates the prompt size of system+user against the model context
// with reservedForOutput and headroom set aside. Remaining is never negative.
func Check(modelName, system, user string, reservedForOutput int) Report {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	r := Report{
		PromptTokens:  EstimateTokens(system) + EstimateTokens(user),
		ContextTokens: ModelContextTokens(modelName),
		Reserved:      reservedForOutput + HeadroomTokens(modelName),
	}
	r.Remaining = r.ContextTokens - r.Reserved - r.PromptTokens
	if r.Remaining < 0 {
		r.Remaining = 0
	}
	return r
}

// knownModelMax contains rough context sizes for common model identifiers.
var knownModelMax = map[string]int{
	"gemini-2.5-flash":      1_048_576,
	"gemini-2.5-pro":        1_048_576,
	"gemini-2.0-flash-001":  1_048_576,
	"gemini-flash-1.5":      1_000_000,
	"gpt-4o":                128_000,
	"gpt-4o-mini":           128_000,
	"gpt-4-turbo":           128_000,
	"gpt-3.5-turbo":         16_384,
	"claude-3-5-sonnet":     200_000,
	"claude-3-haiku":        200_000,
	"llama-3":               8_192,
	"llama-3.1":             128_000,
	"llama-3.1-8b-instruct": 131_072,
	"gpt-oss-20b":           4_096,
}
