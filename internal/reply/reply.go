// Package reply recovers a {score, motivation} object from a model reply that
// is supposed to be pure JSON but may be wrapped in prose or markdown fences.
package reply

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultMotivation replaces a missing, empty or non-string motivation.
const DefaultMotivation = "No detailed analysis available"

// MaxExcerptChars bounds the reply excerpt carried by MalformedResponseError.
const MaxExcerptChars = 200

// Result is the validated outcome of one model reply.
type Result struct {
	Score      int    `json:"score"`
	Motivation string `json:"motivation"`
}

// Strategy turns reply text into a decoded JSON value or fails.
type Strategy struct {
	Name    string
	Recover func(text string) (any, error)
}

// Strategies is the recovery order; the first success wins.
var Strategies = []Strategy{
	{Name: "direct", Recover: Direct},
	{Name: "fenced", Recover: Fenced},
	{Name: "braces", Recover: BraceScan},
}

var (
	errNoFence      = errors.New("no fenced json block")
	errNoBrace      = errors.New("no json object found")
	errUnterminated = errors.New("incomplete json object")
	errTrailing     = errors.New("unexpected data after json value")
)

// Direct parses the whole reply as a single JSON value.
func Direct(text string) (any, error) {
	return decode(text)
}

var fenceRe = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// Fenced parses the first brace-delimited block inside a ``` or ```json fence.
func Fenced(text string) (any, error) {
	m := fenceRe.FindStringSubmatch(text)
	if m == nil {
		return nil, errNoFence
	}
	return decode(m[1])
}

// BraceScan takes the text from the first '{' to the brace that brings the
// nesting count back to zero. Braces inside string literals are counted too.
func BraceScan(text string) (any, error) {
	candidate, err := balancedObject(text)
	if err != nil {
		return nil, err
	}
	return decode(candidate)
}

func balancedObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoBrace
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errUnterminated
}

// decode keeps numbers as json.Number so values beyond float64 range still
// decode and can be clamped later.
func decode(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailing
	}
	return v, nil
}

// Recover runs Strategies in order and returns the first decoded value.
func Recover(text string) (any, error) {
	for _, s := range Strategies {
		if v, err := s.Recover(text); err == nil {
			return v, nil
		}
	}
	return nil, &MalformedResponseError{Excerpt: Excerpt(text)}
}

// Parse recovers and validates a reply.
func Parse(text string) (Result, error) {
	v, err := Recover(text)
	if err != nil {
		return Result{}, err
	}
	return Validate(v)
}

// Validate checks a decoded value: it must be an object with a numeric
// score. The score is rounded half away from zero, then clamped.
func Validate(v any) (Result, error) {
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return Result{}, &ValidationError{Reason: "not a valid object"}
	}
	raw, ok := scoreValue(obj["score"])
	if !ok {
		return Result{}, &ValidationError{Reason: "missing or invalid score field"}
	}
	res := Result{Score: roundScore(raw), Motivation: DefaultMotivation}
	if m, ok := obj["motivation"].(string); ok && m != "" {
		res.Motivation = m
	}
	return res, nil
}

// scoreValue accepts a JSON number. Out-of-range numbers come back as ±Inf
// or 0 from ParseFloat and are kept.
func scoreValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// roundScore bounds before converting so huge values cannot overflow int.
func roundScore(f float64) int {
	r := math.Round(f)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return Clamp(int(r))
}

// Clamp bounds a score to [0, 100]. It is idempotent.
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Excerpt returns at most MaxExcerptChars code points of text.
func Excerpt(text string) string {
	n := 0
	for i := range text {
		if n == MaxExcerptChars {
			return text[:i]
		}
		n++
	}
	return text
}
