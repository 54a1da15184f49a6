// Package backend implements model.Backend for each supported provider.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/darshil0/ai-testing/internal/config"
	"github.com/darshil0/ai-testing/internal/model"
)

// Error is a failed provider call. StatusCode is 0 when no HTTP response was received.
type Error struct {
	Provider   string
	Model      string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s:%s: HTTP %d: %v", e.Provider, e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s:%s: %v", e.Provider, e.Model, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(provider, modelName string, err error) error {
	e := &Error{Provider: provider, Model: modelName, Err: err}

	var anthropicErr *anthropic.Error
	var openaiErr *openai.Error
	var genaiErr *genai.APIError
	switch {
	case errors.As(err, &anthropicErr):
		e.StatusCode = anthropicErr.StatusCode
	case errors.As(err, &openaiErr):
		e.StatusCode = openaiErr.StatusCode
	case errors.As(err, &genaiErr):
		e.StatusCode = genaiErr.Code
	}
	return e
}

// IsRetryable reports whether err is transient: a rate limit, an
// overloaded or failing server, a timed-out call, or a network error.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var be *Error
	if errors.As(err, &be) && be.StatusCode != 0 {
		return retryableStatus(be.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// Some SDK paths surface only a message.
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "Error 429") ||
		strings.Contains(msg, "Error 503") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "Overloaded") ||
		strings.Contains(msg, "connection reset")
}

func retryableStatus(code int) bool {
	switch {
	case code == 408, code == 429, code == 529:
		return true
	case code >= 500 && code <= 599:
		return true
	}
	return false
}

// estimateTokens is the len/4 heuristic used when a provider reports no usage.
func estimateTokens(s string) int {
	return len(s) / 4
}

// Factory builds backends from provider credentials.
type Factory struct {
	Env *config.Env
}

// New returns the backend for id. It fails when the provider's credentials
// are missing; the caller records that failure against every pair for id.
func (f *Factory) New(ctx context.Context, id model.Identifier) (model.Backend, error) {
	env := f.Env
	if env == nil {
		env = &config.Env{}
	}
	switch id.Provider {
	case model.OpenAI:
		if env.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY not set")
		}
		return NewOpenAI(OpenAIConfig{BaseURL: env.OpenAIBaseURL, APIKey: env.OpenAIAPIKey, Model: id.Name}), nil
	case model.Anthropic:
		if env.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY not set")
		}
		return NewAnthropic(AnthropicConfig{APIKey: env.AnthropicAPIKey, Model: id.Name}), nil
	case model.Gemini:
		if env.GeminiKey() == "" {
			return nil, errors.New("GOOGLE_API_KEY (or GEMINI_API_KEY) not set")
		}
		return NewGemini(ctx, GeminiConfig{APIKey: env.GeminiKey(), Model: id.Name})
	case model.Ollama:
		return NewOllama(env.OllamaHost, id.Name), nil
	case model.Simulated:
		return NewSimulated(id.Name), nil
	}
	return nil, fmt.Errorf("%w %q", model.ErrUnknownProvider, id.Provider)
}
