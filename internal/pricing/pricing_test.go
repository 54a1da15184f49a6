package pricing_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/darshil0/ai-testing/internal/model"
	"github.com/darshil0/ai-testing/internal/pricing"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestLoadPricing(t *testing.T) {
	dir := t.TempDir()
	content := `gpt-4o:
  input: 5.0
  output: 15.0
"anthropic:claude-sonnet-4-5":
  input: 3.0
  output: 15.0
`
	path := filepath.Join(dir, "pricing.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := pricing.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ctx := context.Background()

	cost := table.Estimate(ctx, 150, 300, model.Identifier{Provider: "openai", Name: "gpt-4o"})
	if want := 0.00525; abs(cost-want) > 1e-12 {
		t.Errorf("got %f, want %f", cost, want)
	}

	cost = table.Estimate(ctx, 1_000_000, 0, model.Identifier{Provider: "anthropic", Name: "claude-sonnet-4-5"})
	if want := 3.0; abs(cost-want) > 1e-9 {
		t.Errorf("full identifier lookup: got %f, want %f", cost, want)
	}
}

func TestEstimateUnknownModel(t *testing.T) {
	table := pricing.FromConfig(map[string]pricing.Rate{"gpt-4o": {Input: 5, Output: 15}})
	id := model.Identifier{Provider: "ollama", Name: "llama3"}
	for range 2 {
		if cost := table.Estimate(context.Background(), 1000, 500, id); cost != 0 {
			t.Errorf("expected 0 for unknown model, got %f", cost)
		}
	}
}

func TestEstimateNilTable(t *testing.T) {
	var table *pricing.Table
	if cost := table.Estimate(context.Background(), 10, 10, model.Identifier{Provider: "openai", Name: "gpt-4o"}); cost != 0 {
		t.Errorf("expected 0 from nil table, got %f", cost)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := pricing.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing pricing file")
	}
}

func TestMergeOverrides(t *testing.T) {
	table := pricing.FromConfig(map[string]pricing.Rate{"gpt-4o": {Input: 5, Output: 15}, "o1": {Input: 15, Output: 60}})
	table.Merge(map[string]pricing.Rate{"gpt-4o": {Input: 2.5, Output: 10}, "llama3": {}})

	tests := []struct {
		name string
		want pricing.Rate
	}{
		{"gpt-4o", pricing.Rate{Input: 2.5, Output: 10}},
		{"o1", pricing.Rate{Input: 15, Output: 60}},
		{"llama3", pricing.Rate{}},
	}
	for _, tt := range tests {
		got, ok := table.Lookup(model.Identifier{Provider: "openai", Name: tt.name})
		if !ok || got != tt.want {
			t.Errorf("Lookup(%s) = %+v, %v; want %+v", tt.name, got, ok, tt.want)
		}
	}
}

func TestLoadRejectsNegativeRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	if err := os.WriteFile(path, []byte("gpt-4o: {input: -1, output: 15}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := pricing.Load(path); err == nil {
		t.Error("expected error for negative rate")
	}
}
