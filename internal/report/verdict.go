// Package report renders scan outcomes for people and machines.
package report

// Band is a coarse risk class derived from the score.
type Band string

const (
	BandSafe     Band = "safe"
	BandModerate Band = "moderate"
	BandHigh     Band = "high"
)

// Verdict is the user-facing reading of a score.
type Verdict struct {
	Band    Band
	Label   string
	Message string
}

// VerdictFor maps a score to its band: up to 30 is safe, up to 70 moderate,
// anything above is high risk.
func VerdictFor(score int) Verdict {
	switch {
	case score <= 30:
		return Verdict{Band: BandSafe, Label: "Low risk", Message: "This website appears to be safe with low scam indicators."}
	case score <= 70:
		return Verdict{Band: BandModerate, Label: "Moderate risk", Message: "Some potential red flags detected. Exercise caution."}
	default:
		return Verdict{Band: BandHigh, Label: "High risk", Message: "High risk detected! This website may be a scam."}
	}
}

// Icon is the emoji shown next to the verdict in terminal and Markdown output.
func (v Verdict) Icon() string {
	switch v.Band {
	case BandSafe:
		return "✅"
	case BandModerate:
		return "⚠️"
	default:
		return "🚨"
	}
}
