package backend

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/darshil0/ai-testing/internal/model"
)

// Anthropic calls the Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

type AnthropicConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, option.WithMaxRetries(0))
	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (a *Anthropic) Provider() string { return model.Anthropic }
func (a *Anthropic) Model() string    { return a.model }

func (a *Anthropic) Call(ctx context.Context, prompt string, p model.Params) (c model.Completion, err error) {
	ctx, span := startSpan(ctx, model.Anthropic, a.model, p)
	defer func() { endSpan(span, c, err); span.End() }()

	maxTokens := int64(p.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(p.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return model.Completion{}, wrap(model.Anthropic, a.model, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return model.Completion{}, wrap(model.Anthropic, a.model, errors.New("response has no text content"))
	}
	return model.Completion{
		Text:         text.String(),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
