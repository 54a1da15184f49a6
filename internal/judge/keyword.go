package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/darshil0/ai-testing/internal/model"
)

const (
	expectationsOpen  = "A good response is expected to cover:\n<expectations>\n"
	expectationsClose = "</expectations>"
	responseOpen      = "The response to evaluate:\n<response>\n"
	responseClose     = "\n</response>"
)

// KeywordJudge is an offline judge backend. It reads the expectations and
// response back out of a BuildPrompt prompt and scores the fraction of
// expectations that appear in the response, case-insensitively.
type KeywordJudge struct {
	name string
}

func NewKeywordJudge(name string) *KeywordJudge {
	return &KeywordJudge{name: name}
}

func (k *KeywordJudge) Provider() string { return model.Simulated }
func (k *KeywordJudge) Model() string    { return k.name }

func (k *KeywordJudge) Call(_ context.Context, prompt string, _ model.Params) (model.Completion, error) {
	expectations := extractExpectations(prompt)
	response := strings.ToLower(extractResponse(prompt))

	score, reasoning := 0.0, "no expectations declared"
	if len(expectations) > 0 {
		var missing []string
		for _, e := range expectations {
			if !strings.Contains(response, strings.ToLower(e)) {
				missing = append(missing, e)
			}
		}
		matched := len(expectations) - len(missing)
		score = float64(matched) / float64(len(expectations))
		reasoning = fmt.Sprintf("matched %d of %d expectations", matched, len(expectations))
		if len(missing) > 0 {
			reasoning += "; missing: " + strings.Join(missing, ", ")
		}
	}

	out, err := json.Marshal(struct {
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
	}{score, reasoning})
	if err != nil {
		return model.Completion{}, err
	}
	return model.Completion{
		Text:         string(out),
		InputTokens:  len(prompt) / 4,
		OutputTokens: len(out) / 4,
	}, nil
}

func extractExpectations(prompt string) []string {
	i := strings.Index(prompt, expectationsOpen)
	if i < 0 {
		return nil
	}
	rest := prompt[i+len(expectationsOpen):]
	j := strings.Index(rest, expectationsClose)
	if j < 0 {
		return nil
	}
	var out []string
	for _, line := range strings.Split(rest[:j], "\n") {
		if e, ok := strings.CutPrefix(line, "- "); ok && strings.TrimSpace(e) != "" {
			out = append(out, strings.TrimSpace(e))
		}
	}
	return out
}

func extractResponse(prompt string) string {
	i := strings.LastIndex(prompt, responseOpen)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(responseOpen):]
	if j := strings.LastIndex(rest, responseClose); j >= 0 {
		return rest[:j]
	}
	return rest
}
