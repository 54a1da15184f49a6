package pricing

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/chainguard-dev/clog"
	"gopkg.in/yaml.v3"

	"github.com/darshil0/ai-testing/internal/model"
)

// Rate is a model's price in USD per million tokens.
type Rate struct {
	Input  float64 `yaml:"input" json:"input"`
	Output float64 `yaml:"output" json:"output"`
}

// Table maps a model name, or a full provider:model identifier, to its rate.
type Table struct {
	Models map[string]Rate

	warned sync.Map
}

// FromConfig builds a table from the run config's pricing section.
func FromConfig(rates map[string]Rate) *Table {
	models := make(map[string]Rate, len(rates))
	for k, v := range rates {
		models[k] = v
	}
	return &Table{Models: models}
}

// Load reads a standalone pricing file: a yaml mapping of model name to rate.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing file: %w", err)
	}
	var models map[string]Rate
	if err := yaml.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("parsing pricing file: %w", err)
	}
	for name, r := range models {
		if r.Input < 0 || r.Output < 0 {
			return nil, fmt.Errorf("pricing file %s: %s: rates cannot be negative", path, name)
		}
	}
	if models == nil {
		models = map[string]Rate{}
	}
	return &Table{Models: models}, nil
}

// Merge sets every rate in rates on t, replacing existing entries.
func (t *Table) Merge(rates map[string]Rate) {
	if t.Models == nil {
		t.Models = make(map[string]Rate, len(rates))
	}
	for k, v := range rates {
		t.Models[k] = v
	}
}

// Lookup finds the rate for id by bare model name, then by provider:model.
func (t *Table) Lookup(id model.Identifier) (Rate, bool) {
	if t == nil || t.Models == nil {
		return Rate{}, false
	}
	if r, ok := t.Models[id.Name]; ok {
		return r, true
	}
	r, ok := t.Models[id.String()]
	return r, ok
}

// Estimate returns the USD cost of a call. A model with no rate costs 0;
// the first miss per model is logged.
func (t *Table) Estimate(ctx context.Context, inputTokens, outputTokens int, id model.Identifier) float64 {
	r, ok := t.Lookup(id)
	if !ok {
		if t != nil {
			if _, seen := t.warned.LoadOrStore(id.String(), struct{}{}); !seen {
				clog.WarnContextf(ctx, "no pricing entry for %s, estimating cost as 0", id)
			}
		}
		return 0
	}
	return Cost(r, inputTokens, outputTokens)
}

// Cost applies a per-million rate to token counts.
func Cost(r Rate, inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*r.Input + float64(outputTokens)/1_000_000*r.Output
}
