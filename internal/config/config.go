package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/darshil0/ai-testing/internal/model"
	"github.com/darshil0/ai-testing/internal/pii"
	"github.com/darshil0/ai-testing/internal/pricing"
	"github.com/darshil0/ai-testing/internal/retry"
)

// RunConfig is loaded once per run and not modified afterwards.
type RunConfig struct {
	MaxWorkers         int                     `yaml:"max_workers"`
	DefaultModelParams ModelParams             `yaml:"default_model_params"`
	Judge              Judge                   `yaml:"judge"`
	Models             []string                `yaml:"models"`
	Pricing            map[string]pricing.Rate `yaml:"pricing"`
	PricingFile        string                  `yaml:"pricing_file"`
	PIIPatterns        map[string]string       `yaml:"pii_patterns"`
	Retry              Retry                   `yaml:"retry"`
	Results            Results                 `yaml:"results"`
	TestCasesDir       string                  `yaml:"test_cases_dir"`
	Telemetry          Telemetry               `yaml:"telemetry"`
	Secrets            Secrets                 `yaml:"secrets"`
}

type ModelParams struct {
	MaxTokens      int      `yaml:"max_tokens"`
	Temperature    *float64 `yaml:"temperature"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

type Judge struct {
	Model   string `yaml:"model"`
	Samples int    `yaml:"samples"`
	Persona string `yaml:"persona"`
}

type Retry struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxJitter   time.Duration `yaml:"max_jitter"`
}

type Results struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPHeaders  string `yaml:"otlp_headers"`
	MetricsFile  string `yaml:"metrics_file"`
}

type Secrets struct {
	EnvFile string `yaml:"env_file"`
}

// ExportFormats are the result sinks a run can write.
var ExportFormats = []string{"json", "jsonl", "csv"}

// Error is a configuration problem. Callers treat it as fatal when it
// affects every pair of a run.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Default returns the config used when no file is present.
func Default() *RunConfig {
	cfg := &RunConfig{}
	if err := validate(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *RunConfig) error {
	switch {
	case cfg.MaxWorkers == 0:
		cfg.MaxWorkers = 4
	case cfg.MaxWorkers < 0:
		return &Error{Field: "max_workers", Err: errors.New("must be at least 1")}
	}

	p := &cfg.DefaultModelParams
	if p.MaxTokens == 0 {
		p.MaxTokens = 2000
	}
	if p.MaxTokens < 0 {
		return &Error{Field: "default_model_params.max_tokens", Err: errors.New("cannot be negative")}
	}
	if p.Temperature == nil {
		t := 0.7
		p.Temperature = &t
	}
	if p.TimeoutSeconds == 0 {
		p.TimeoutSeconds = 60
	}

	if cfg.Judge.Model == "" {
		cfg.Judge.Model = "simulated:judge"
	}
	if _, err := model.Parse(cfg.Judge.Model); err != nil {
		return &Error{Field: "judge.model", Err: err}
	}
	if cfg.Judge.Samples < 1 {
		cfg.Judge.Samples = 1
	}
	if cfg.Judge.Persona == "" {
		cfg.Judge.Persona = "default"
	}

	for name, r := range cfg.Pricing {
		if r.Input < 0 || r.Output < 0 {
			return &Error{Field: "pricing." + name, Err: errors.New("rates cannot be negative")}
		}
	}
	if len(cfg.PIIPatterns) == 0 {
		cfg.PIIPatterns = pii.DefaultPatterns()
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = 4 * time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 10 * time.Second
	}
	if err := cfg.RetryConfig().Validate(); err != nil {
		return &Error{Field: "retry", Err: err}
	}

	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	if len(cfg.Results.Formats) == 0 {
		cfg.Results.Formats = []string{"json", "csv"}
	}
	for _, f := range cfg.Results.Formats {
		if !slices.Contains(ExportFormats, f) {
			return &Error{Field: "results.formats", Err: fmt.Errorf("unknown format %q", f)}
		}
	}
	if cfg.TestCasesDir == "" {
		cfg.TestCasesDir = "test_cases"
	}
	return nil
}

// Params converts the defaults into per-call generation settings.
func (p ModelParams) Params() model.Params {
	out := model.Params{MaxTokens: p.MaxTokens}
	if p.Temperature != nil {
		out.Temperature = *p.Temperature
	}
	return out
}

// Timeout bounds a single backend call.
func (p ModelParams) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (c *RunConfig) RetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxDelay:    c.Retry.MaxDelay,
		MaxJitter:   c.Retry.MaxJitter,
	}
}

// PricingTable loads pricing_file, when set, and lays the inline pricing
// entries over it.
func (c *RunConfig) PricingTable() (*pricing.Table, error) {
	if c.PricingFile == "" {
		return pricing.FromConfig(c.Pricing), nil
	}
	table, err := pricing.Load(c.PricingFile)
	if err != nil {
		return nil, &Error{Field: "pricing_file", Err: err}
	}
	table.Merge(c.Pricing)
	return table, nil
}
