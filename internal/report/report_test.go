package report_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darshil0/ai-testing/internal/report"
	"github.com/darshil0/ai-testing/internal/result"
)

func score(f float64) *float64 { return &f }

func fixture() []result.EvaluationResult {
	return []result.EvaluationResult{
		{TestCaseName: "t1", Category: "factual", ModelType: "openai:gpt-4o", JudgeScore: score(0.9), DurationSeconds: 1, EstimatedCost: 0.5, TokensInput: 100, TokensOutput: 200},
		{TestCaseName: "t2", Category: "factual", ModelType: "openai:gpt-4o", JudgeScore: score(0.7), DurationSeconds: 3, EstimatedCost: 0.5, TokensInput: 100, TokensOutput: 200, PIIFound: true, PIITypes: []string{"email"}},
		{TestCaseName: "t1", Category: "factual", ModelType: "simulated:echo", JudgeScore: score(0.2), DurationSeconds: 0.5},
		// No score: a failed call and an unparsed judge verdict.
		{TestCaseName: "t2", Category: "safety", ModelType: "simulated:echo", Error: "boom"},
		{TestCaseName: "t3", Category: "safety", ModelType: "simulated:echo", JudgeReasoning: "judge output could not be parsed as a score: \"meh\""},
	}
}

func TestSummarize(t *testing.T) {
	s := report.Summarize(fixture())
	assert.Equal(t, 5, s.Results)
	assert.Equal(t, 1, s.Errors)
	require.Len(t, s.Models, 2)

	gpt := s.Models[0]
	assert.Equal(t, "openai:gpt-4o", gpt.Model)
	assert.Equal(t, 2, gpt.Evaluations)
	require.NotNil(t, gpt.MeanScore)
	assert.InDelta(t, 0.8, *gpt.MeanScore, 1e-9)
	assert.InDelta(t, 2.0, gpt.MeanLatencySeconds, 1e-9)
	assert.InDelta(t, 1.0, gpt.TotalCostUSD, 1e-9)
	assert.InDelta(t, 0.5, gpt.MeanCostUSD, 1e-9)
	assert.Equal(t, 600, gpt.TotalTokens)
	assert.Equal(t, 1, gpt.PIIHits)

	echo := s.Models[1]
	assert.Equal(t, 3, echo.Evaluations)
	assert.Equal(t, 1, echo.Errors)
	assert.Equal(t, 1, echo.Scored)
	require.NotNil(t, echo.MeanScore)
	// Mean is only over present scores.
	assert.InDelta(t, 0.2, *echo.MeanScore, 1e-9)

	require.Len(t, s.Categories, 2)
	factual, safety := s.Categories[0], s.Categories[1]
	assert.Equal(t, "factual", factual.Category)
	assert.InDelta(t, 0.6, *factual.MeanScore, 1e-9)
	assert.Equal(t, 0.2, *factual.MinScore)
	assert.Equal(t, 0.9, *factual.MaxScore)
	assert.Equal(t, 2, safety.Evaluations)
	assert.Nil(t, safety.MeanScore)
	assert.Nil(t, safety.MinScore)
}

func TestGenerateFromRunDir(t *testing.T) {
	runDir := t.TempDir()
	require.NoError(t, result.WriteJSONL(filepath.Join(runDir, "results.jsonl"), fixture()))

	var buf bytes.Buffer
	require.NoError(t, report.Generate(runDir, "table", &buf))
	out := buf.String()
	assert.Contains(t, out, "openai:gpt-4o")
	assert.Contains(t, out, "simulated:echo")
	assert.Contains(t, out, "safety")
	assert.Contains(t, out, "5 results, 1 errors")
}

func TestGenerateFallsBackToJSON(t *testing.T) {
	runDir := t.TempDir()
	require.NoError(t, result.WriteJSON(filepath.Join(runDir, "results.json"), fixture()))

	var buf bytes.Buffer
	require.NoError(t, report.Generate(runDir, "json", &buf))

	var s report.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &s))
	assert.Equal(t, 5, s.Results)
	assert.Len(t, s.Models, 2)
}

func TestGenerateMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, result.WriteJSON(path, fixture()))

	var buf bytes.Buffer
	require.NoError(t, report.Generate(path, "markdown", &buf))
	lines := strings.Split(buf.String(), "\n")
	assert.Contains(t, lines, "| openai:gpt-4o | 2 | 0 | 0.800 | 2.00s | $1.0000 | $0.5000 | 600 | 1 |")
	assert.Contains(t, lines, "| safety | 2 | 0 | - | - | - |")
}

func TestGenerateMissingResults(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, report.Generate(t.TempDir(), "table", &buf))
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, report.Write(report.Summary{}, "xml", &buf))
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(report.Summarize(nil), "json", &buf))
	assert.Contains(t, buf.String(), `"models": []`)
}
