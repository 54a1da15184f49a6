package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/darshil0/ai-testing/internal/config"
	"github.com/darshil0/ai-testing/internal/model"
	"github.com/darshil0/ai-testing/internal/pricing"
)

func TestLoadMinimal(t *testing.T) {
	cfg, err := config.Load("../../testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxWorkers != 4 {
		t.Errorf("expected default max_workers 4, got %d", cfg.MaxWorkers)
	}
	if cfg.DefaultModelParams.MaxTokens != 2000 {
		t.Errorf("expected default max_tokens 2000, got %d", cfg.DefaultModelParams.MaxTokens)
	}
	if got := cfg.DefaultModelParams.Params().Temperature; got != 0.7 {
		t.Errorf("expected default temperature 0.7, got %f", got)
	}
	if cfg.Judge.Model != "simulated:judge" || cfg.Judge.Persona != "default" || cfg.Judge.Samples != 1 {
		t.Errorf("unexpected judge defaults: %+v", cfg.Judge)
	}
	if rc := cfg.RetryConfig(); rc.MaxAttempts != 3 || rc.BaseDelay != 4*time.Second || rc.MaxDelay != 10*time.Second {
		t.Errorf("unexpected retry defaults: %+v", rc)
	}
	if len(cfg.PIIPatterns) == 0 {
		t.Error("expected default pii patterns")
	}
	if cfg.Results.Dir != "results" || len(cfg.Results.Formats) != 2 {
		t.Errorf("unexpected results defaults: %+v", cfg.Results)
	}
	if len(cfg.Models) != 1 || cfg.Models[0] != "simulated:echo" {
		t.Errorf("expected one simulated model, got %v", cfg.Models)
	}
}

func TestLoadFull(t *testing.T) {
	cfg, err := config.Load("../../testdata/full.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxWorkers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.MaxWorkers)
	}
	if got := cfg.DefaultModelParams.Params().Temperature; got != 0 {
		t.Errorf("explicit zero temperature should survive defaults, got %f", got)
	}
	if cfg.DefaultModelParams.Timeout() != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.DefaultModelParams.Timeout())
	}
	if cfg.Judge.Samples != 3 || cfg.Judge.Persona != "critic" {
		t.Errorf("unexpected judge: %+v", cfg.Judge)
	}
	if cfg.Retry.BaseDelay != time.Second || cfg.Retry.MaxDelay != 20*time.Second {
		t.Errorf("unexpected retry: %+v", cfg.Retry)
	}
	if r := cfg.Pricing["gpt-4o"]; r.Input != 5.0 || r.Output != 15.0 {
		t.Errorf("unexpected gpt-4o pricing: %+v", r)
	}
	if len(cfg.PIIPatterns) != 1 {
		t.Errorf("configured patterns should replace defaults, got %d", len(cfg.PIIPatterns))
	}
	if len(cfg.Models) != 4 {
		t.Errorf("expected 4 models, got %d", len(cfg.Models))
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load("nonexistent.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := config.Load("../../testdata/invalid.yaml")
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadUnknownFormat(t *testing.T) {
	_, err := config.Load("../../testdata/bad_format.yaml")
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *config.Error, got %v", err)
	}
	if cfgErr.Field != "results.formats" {
		t.Errorf("field: got %q, want results.formats", cfgErr.Field)
	}
}

func TestLoadBadJudgeModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	os.WriteFile(path, []byte("judge:\n  model: mystery:box\n"), 0o644)
	_, err := config.Load(path)
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) || cfgErr.Field != "judge.model" {
		t.Fatalf("expected judge.model config error, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.TestCasesDir != "test_cases" {
		t.Errorf("got %q, want test_cases", cfg.TestCasesDir)
	}
}

func TestPricingTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	content := "gpt-4o: {input: 5, output: 15}\nclaude-sonnet-4-5: {input: 3, output: 15}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		cfg       config.RunConfig
		model     string
		want      pricing.Rate
		wantFound bool
	}{
		{
			name:      "inline only",
			cfg:       config.RunConfig{Pricing: map[string]pricing.Rate{"gpt-4o": {Input: 1, Output: 2}}},
			model:     "gpt-4o",
			want:      pricing.Rate{Input: 1, Output: 2},
			wantFound: true,
		},
		{
			name:      "file only",
			cfg:       config.RunConfig{PricingFile: path},
			model:     "claude-sonnet-4-5",
			want:      pricing.Rate{Input: 3, Output: 15},
			wantFound: true,
		},
		{
			name:      "inline overrides file",
			cfg:       config.RunConfig{PricingFile: path, Pricing: map[string]pricing.Rate{"gpt-4o": {Input: 2.5, Output: 10}}},
			model:     "gpt-4o",
			want:      pricing.Rate{Input: 2.5, Output: 10},
			wantFound: true,
		},
		{
			name:  "missing entry",
			cfg:   config.RunConfig{PricingFile: path},
			model: "llama3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := tt.cfg.PricingTable()
			if err != nil {
				t.Fatalf("PricingTable: %v", err)
			}
			got, found := table.Lookup(model.Identifier{Provider: "openai", Name: tt.model})
			if found != tt.wantFound || got != tt.want {
				t.Errorf("Lookup(%s) = %+v, %v; want %+v, %v", tt.model, got, found, tt.want, tt.wantFound)
			}
		})
	}
}

func TestPricingTableMissingFile(t *testing.T) {
	cfg := config.RunConfig{PricingFile: filepath.Join(t.TempDir(), "nope.yaml")}
	_, err := cfg.PricingTable()
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) || cfgErr.Field != "pricing_file" {
		t.Fatalf("expected pricing_file config error, got %v", err)
	}
}

func TestParseEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `# provider keys
OPENAI_API_KEY=sk-test
export ANTHROPIC_API_KEY="sk-ant"
GOOGLE_API_KEY='g-key'
not a pair
`
	os.WriteFile(path, []byte(content), 0o600)

	vars, err := config.ParseEnvFile(path)
	if err != nil {
		t.Fatalf("ParseEnvFile: %v", err)
	}
	want := map[string]string{
		"OPENAI_API_KEY":    "sk-test",
		"ANTHROPIC_API_KEY": "sk-ant",
		"GOOGLE_API_KEY":    "g-key",
	}
	if len(vars) != len(want) {
		t.Fatalf("got %d vars, want %d: %v", len(vars), len(want), vars)
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s: got %q, want %q", k, vars[k], v)
		}
	}
}

func TestProcessEnv(t *testing.T) {
	env, err := config.ProcessEnv(context.Background(), envconfig.MapLookuper(map[string]string{
		"GEMINI_API_KEY": "gem",
	}))
	if err != nil {
		t.Fatalf("ProcessEnv: %v", err)
	}
	if env.OllamaHost != "http://localhost:11434" {
		t.Errorf("ollama host default: got %q", env.OllamaHost)
	}
	if env.GeminiKey() != "gem" {
		t.Errorf("gemini key fallback: got %q", env.GeminiKey())
	}
}
