// Package model defines model identifiers and the capability every
// provider backend implements.
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Known providers.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
	Ollama    = "ollama"
	Simulated = "simulated"
)

var providers = []string{OpenAI, Anthropic, Gemini, Ollama, Simulated}

// ErrUnknownProvider is returned by Parse for a provider outside the known set.
var ErrUnknownProvider = errors.New("unknown model provider")

// Identifier names a model as provider:model.
type Identifier struct {
	Provider string
	Name     string
}

// Parse splits "provider:model" on the first colon, so ollama tags such
// as "ollama:llama3:8b" keep their suffix.
func Parse(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	provider, name, ok := strings.Cut(s, ":")
	if !ok || provider == "" || name == "" {
		return Identifier{}, fmt.Errorf("model identifier %q: want provider:model", s)
	}
	id := Identifier{Provider: strings.ToLower(provider), Name: name}
	if !KnownProvider(id.Provider) {
		return Identifier{}, fmt.Errorf("model identifier %q: %w %q", s, ErrUnknownProvider, provider)
	}
	return id, nil
}

// KnownProvider reports whether p is one of the supported providers.
func KnownProvider(p string) bool {
	for _, known := range providers {
		if p == known {
			return true
		}
	}
	return false
}

// Providers lists the supported providers.
func Providers() []string {
	return append([]string(nil), providers...)
}

func (id Identifier) String() string {
	return id.Provider + ":" + id.Name
}

// Params are the per-call generation settings.
type Params struct {
	MaxTokens   int
	Temperature float64
}

// Completion is what a backend returns for one prompt.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Backend is the single capability the orchestrator and judge need from a model.
type Backend interface {
	Call(ctx context.Context, prompt string, p Params) (Completion, error)
	Provider() string
	Model() string
}
