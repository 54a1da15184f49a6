package backend

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/darshil0/ai-testing/internal/model"
)

// OpenAI calls an OpenAI-compatible Chat Completions endpoint.
type OpenAI struct {
	client   openai.Client
	provider string
	model    string
	// estimate fills in token counts from text length when the server omits usage.
	estimate bool
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	// Retries are handled by the caller, per call.
	opts = append(opts, option.WithMaxRetries(0))
	return &OpenAI{
		client:   openai.NewClient(opts...),
		provider: model.OpenAI,
		model:    cfg.Model,
	}
}

// NewOllama talks to a local Ollama server through its OpenAI-compatible API.
func NewOllama(host, modelName string) *OpenAI {
	if host == "" {
		host = "http://localhost:11434"
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	o := NewOpenAI(OpenAIConfig{
		BaseURL: strings.TrimRight(host, "/") + "/v1/",
		APIKey:  "ollama",
		Model:   modelName,
	})
	o.provider = model.Ollama
	o.estimate = true
	return o
}

func (o *OpenAI) Provider() string { return o.provider }
func (o *OpenAI) Model() string    { return o.model }

func (o *OpenAI) Call(ctx context.Context, prompt string, p model.Params) (c model.Completion, err error) {
	ctx, span := startSpan(ctx, o.provider, o.model, p)
	defer func() { endSpan(span, c, err); span.End() }()

	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(p.Temperature),
	}
	if p.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.Completion{}, wrap(o.provider, o.model, err)
	}
	if len(resp.Choices) == 0 {
		return model.Completion{}, wrap(o.provider, o.model, errors.New("empty response"))
	}

	c = model.Completion{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	if o.estimate && c.InputTokens == 0 && c.OutputTokens == 0 {
		c.InputTokens = estimateTokens(prompt)
		c.OutputTokens = estimateTokens(c.Text)
	}
	return c, nil
}
