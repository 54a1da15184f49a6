package model_test

import (
	"errors"
	"testing"

	"github.com/darshil0/ai-testing/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    model.Identifier
		wantErr bool
		unknown bool
	}{
		{"openai", "openai:gpt-4o", model.Identifier{Provider: "openai", Name: "gpt-4o"}, false, false},
		{"ollama tag keeps colon", "ollama:llama3:8b", model.Identifier{Provider: "ollama", Name: "llama3:8b"}, false, false},
		{"provider case folded", "Anthropic:claude-sonnet-4-5", model.Identifier{Provider: "anthropic", Name: "claude-sonnet-4-5"}, false, false},
		{"surrounding space", "  simulated:echo ", model.Identifier{Provider: "simulated", Name: "echo"}, false, false},
		{"missing colon", "gpt-4o", model.Identifier{}, true, false},
		{"empty model", "openai:", model.Identifier{}, true, false},
		{"unknown provider", "mistral:large", model.Identifier{}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if errors.Is(err, model.ErrUnknownProvider) != tt.unknown {
				t.Errorf("Parse(%q) unknown provider = %v, want %v", tt.in, !tt.unknown, tt.unknown)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIdentifierString(t *testing.T) {
	id, err := model.Parse("gemini:gemini-2.0-flash")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := id.String(); got != "gemini:gemini-2.0-flash" {
		t.Errorf("String() = %q", got)
	}
}
