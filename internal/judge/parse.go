package judge

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Verdict is a parsed judge output. Score is nil when no number could be recovered.
type Verdict struct {
	Score      *float64
	Reasoning  string
	Structured bool
}

// numberRE matches the first decimal number in free text: an optional
// sign, digits with an optional fraction (or a bare fraction), and an
// optional exponent.
var numberRE = regexp.MustCompile(`[-+]?(?:\d+\.\d*|\.\d+|\d+)(?:[eE][-+]?\d+)?`)

const maxRawInNote = 200

// ParseVerdict reads a judge's raw output: first as a JSON object with a
// score field, then as free text whose first number is the score. The
// score is clamped to [0, 1].
func ParseVerdict(raw string) Verdict {
	if score, reasoning, ok := parseStructured(raw); ok {
		s := clamp(score)
		return Verdict{Score: &s, Reasoning: reasoning, Structured: true}
	}

	text := strings.TrimSpace(raw)
	if m := numberRE.FindString(text); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil || errors.Is(err, strconv.ErrRange) {
			s := clamp(v)
			return Verdict{Score: &s, Reasoning: text}
		}
	}

	note := text
	if len(note) > maxRawInNote {
		note = note[:maxRawInNote] + "..."
	}
	return Verdict{Reasoning: "judge output could not be parsed as a score: " + strconv.Quote(note)}
}

func parseStructured(raw string) (float64, string, bool) {
	content := stripMarkdownFences(raw)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return 0, "", false
	}

	var v struct {
		Score     json.RawMessage `json:"score"`
		Reasoning string          `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &v); err != nil {
		return 0, "", false
	}
	if len(v.Score) == 0 || string(v.Score) == "null" {
		return 0, "", false
	}

	var score float64
	if err := json.Unmarshal(v.Score, &score); err != nil {
		var s string
		if err := json.Unmarshal(v.Score, &s); err != nil {
			return 0, "", false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) {
			return 0, "", false
		}
		score = f
	}
	return score, strings.TrimSpace(v.Reasoning), true
}

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		// Drop the info string (e.g. "json") on the opening fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	return s
}

// clamp maps v into [0, 1]. NaN maps to 0.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
