// Package report summarizes exported evaluation results per model and per
// category.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/darshil0/ai-testing/internal/result"
)

type ModelSummary struct {
	Model              string   `json:"model"`
	Evaluations        int      `json:"evaluations"`
	Errors             int      `json:"errors"`
	Scored             int      `json:"scored"`
	MeanScore          *float64 `json:"mean_score"`
	MeanLatencySeconds float64  `json:"mean_latency_seconds"`
	TotalCostUSD       float64  `json:"total_cost_usd"`
	MeanCostUSD        float64  `json:"mean_cost_usd"`
	TotalTokens        int      `json:"total_tokens"`
	PIIHits            int      `json:"pii_hits"`
}

type CategorySummary struct {
	Category    string   `json:"category"`
	Evaluations int      `json:"evaluations"`
	Scored      int      `json:"scored"`
	MeanScore   *float64 `json:"mean_score"`
	MinScore    *float64 `json:"min_score"`
	MaxScore    *float64 `json:"max_score"`
}

type Summary struct {
	Results    int               `json:"results"`
	Errors     int               `json:"errors"`
	Models     []ModelSummary    `json:"models"`
	Categories []CategorySummary `json:"categories"`
}

// Generate summarizes the results at path, a results file or a run
// directory, and writes the summary to w in format (table, markdown or json).
func Generate(path, format string, w io.Writer) error {
	results, err := Load(path)
	if err != nil {
		return err
	}
	return Write(Summarize(results), format, w)
}

// Load reads results from a file, or from a run directory's results.jsonl
// or results.json, in that order of preference.
func Load(path string) ([]result.EvaluationResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	if !info.IsDir() {
		return result.ReadFile(path)
	}
	for _, format := range []string{"jsonl", "json"} {
		candidate := filepath.Join(path, result.FileName(format))
		if _, err := os.Stat(candidate); err == nil {
			return result.ReadFile(candidate)
		}
	}
	return nil, fmt.Errorf("no results.jsonl or results.json in %s", path)
}

// Summarize aggregates results. Means over scores only count results that
// carry a score; failed and unparsed pairs are left out of them.
func Summarize(results []result.EvaluationResult) Summary {
	type modelAccum struct {
		ModelSummary
		scoreSum float64
		duration float64
	}
	type categoryAccum struct {
		CategorySummary
		scoreSum float64
	}
	byModel := map[string]*modelAccum{}
	byCategory := map[string]*categoryAccum{}

	s := Summary{Results: len(results)}
	for _, r := range results {
		m, ok := byModel[r.ModelType]
		if !ok {
			m = &modelAccum{ModelSummary: ModelSummary{Model: r.ModelType}}
			byModel[r.ModelType] = m
		}
		c, ok := byCategory[r.Category]
		if !ok {
			c = &categoryAccum{CategorySummary: CategorySummary{Category: r.Category}}
			byCategory[r.Category] = c
		}

		m.Evaluations++
		c.Evaluations++
		m.duration += r.DurationSeconds
		m.TotalCostUSD += r.EstimatedCost
		m.TotalTokens += r.TokensInput + r.TokensOutput
		if r.PIIFound {
			m.PIIHits++
		}
		if r.Failed() {
			m.Errors++
			s.Errors++
		}
		if r.JudgeScore == nil {
			continue
		}
		score := *r.JudgeScore
		m.Scored++
		m.scoreSum += score
		c.Scored++
		c.scoreSum += score
		if c.MinScore == nil || score < *c.MinScore {
			c.MinScore = ptr(score)
		}
		if c.MaxScore == nil || score > *c.MaxScore {
			c.MaxScore = ptr(score)
		}
	}

	for _, m := range byModel {
		if m.Scored > 0 {
			m.MeanScore = ptr(m.scoreSum / float64(m.Scored))
		}
		m.MeanLatencySeconds = m.duration / float64(m.Evaluations)
		m.MeanCostUSD = m.TotalCostUSD / float64(m.Evaluations)
		s.Models = append(s.Models, m.ModelSummary)
	}
	for _, c := range byCategory {
		if c.Scored > 0 {
			c.MeanScore = ptr(c.scoreSum / float64(c.Scored))
		}
		s.Categories = append(s.Categories, c.CategorySummary)
	}
	sort.Slice(s.Models, func(i, j int) bool { return s.Models[i].Model < s.Models[j].Model })
	sort.Slice(s.Categories, func(i, j int) bool { return s.Categories[i].Category < s.Categories[j].Category })
	return s
}

func ptr(f float64) *float64 { return &f }

// Write renders s as a table (the default), markdown or json.
func Write(s Summary, format string, w io.Writer) error {
	switch format {
	case "markdown":
		return writeMarkdown(s, w)
	case "json":
		return writeJSON(s, w)
	case "table", "":
		return writeTable(s, w)
	}
	return fmt.Errorf("unknown report format %q", format)
}

var (
	modelHeaders    = []string{"Model", "Evals", "Errors", "Mean Score", "Mean Latency", "Total Cost", "Mean Cost", "Tokens", "PII Hits"}
	categoryHeaders = []string{"Category", "Evals", "Scored", "Mean Score", "Min", "Max"}
)

func modelRow(m ModelSummary) []string {
	return []string{
		m.Model,
		strconv.Itoa(m.Evaluations),
		strconv.Itoa(m.Errors),
		formatScore(m.MeanScore),
		fmt.Sprintf("%.2fs", m.MeanLatencySeconds),
		fmt.Sprintf("$%.4f", m.TotalCostUSD),
		fmt.Sprintf("$%.4f", m.MeanCostUSD),
		strconv.Itoa(m.TotalTokens),
		strconv.Itoa(m.PIIHits),
	}
}

func categoryRow(c CategorySummary) []string {
	return []string{
		c.Category,
		strconv.Itoa(c.Evaluations),
		strconv.Itoa(c.Scored),
		formatScore(c.MeanScore),
		formatScore(c.MinScore),
		formatScore(c.MaxScore),
	}
}

func formatScore(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *f)
}

func writeTable(s Summary, w io.Writer) error {
	fmt.Fprintf(w, "%d results, %d errors\n\n", s.Results, s.Errors)

	table := newTable(modelHeaders, w)
	for _, m := range s.Models {
		if err := table.Append(modelRow(m)); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	table = newTable(categoryHeaders, w)
	for _, c := range s.Categories {
		if err := table.Append(categoryRow(c)); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeMarkdown(s Summary, w io.Writer) error {
	fmt.Fprintln(w, "## Models")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Model | Evals | Errors | Mean Score | Mean Latency | Total Cost | Mean Cost | Tokens | PII Hits |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|---|")
	for _, m := range s.Models {
		r := modelRow(m)
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n", r[0], r[1], r[2], r[3], r[4], r[5], r[6], r[7], r[8])
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Categories")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Category | Evals | Scored | Mean Score | Min | Max |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|")
	for _, c := range s.Categories {
		r := categoryRow(c)
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s |\n", r[0], r[1], r[2], r[3], r[4], r[5])
	}
	return nil
}

func writeJSON(s Summary, w io.Writer) error {
	if s.Models == nil {
		s.Models = []ModelSummary{}
	}
	if s.Categories == nil {
		s.Categories = []CategorySummary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
