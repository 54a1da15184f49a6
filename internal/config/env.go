package config

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Env holds provider credentials and endpoints read from the environment.
type Env struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	OllamaHost      string `env:"OLLAMA_HOST,default=http://localhost:11434"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders     string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
}

// GeminiKey prefers GOOGLE_API_KEY and falls back to GEMINI_API_KEY.
func (e *Env) GeminiKey() string {
	if e.GoogleAPIKey != "" {
		return e.GoogleAPIKey
	}
	return e.GeminiAPIKey
}

// LoadEnv applies envFile (if set) to the process environment without
// overriding existing variables, then reads Env from the environment.
func LoadEnv(ctx context.Context, envFile string) (*Env, error) {
	if envFile != "" {
		vars, err := ParseEnvFile(envFile)
		if err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
		for k, v := range vars {
			if _, set := os.LookupEnv(k); !set {
				os.Setenv(k, v)
			}
		}
	}
	return ProcessEnv(ctx, envconfig.OsLookuper())
}

// ProcessEnv reads Env through an arbitrary lookuper.
func ProcessEnv(ctx context.Context, l envconfig.Lookuper) (*Env, error) {
	var env Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return &env, nil
}

// ParseEnvFile reads KEY=value lines. Blank lines, comments and lines
// without '=' are ignored; an "export " prefix and matching quotes are stripped.
func ParseEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vars := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || s[0] == '#' {
			continue
		}
		s = strings.TrimPrefix(s, "export ")
		key, val, ok := strings.Cut(s, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(key)] = stripQuotes(strings.TrimSpace(val))
	}
	return vars, sc.Err()
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
