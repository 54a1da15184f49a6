// Package testcase loads benchmark prompts from a directory.
//
// Two file formats are recognized. Structured files (.yaml, .yml, .json)
// carry explicit fields:
//
//	name: capital_of_france
//	category: geography
//	difficulty: easy
//	prompt: What is the capital of France?
//	expectations: [Paris]
//	metadata: {source: manual}
//
// Any other file is read as the flat format: "Key: value" header lines,
// of which Category and Difficulty are required, a blank line, then the
// prompt body.
package testcase

import (
	"fmt"
)

// TestCase is one prompt to dispatch to every model in a run.
type TestCase struct {
	Name         string         `json:"name" yaml:"name" jsonschema:"description=Must match the file name without extension when set"`
	Category     string         `json:"category" yaml:"category" jsonschema:"required"`
	Difficulty   string         `json:"difficulty" yaml:"difficulty" jsonschema:"required"`
	Prompt       string         `json:"prompt" yaml:"prompt" jsonschema:"required"`
	Expectations []string       `json:"expectations,omitempty" yaml:"expectations,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Path is the file the case was read from.
	Path string `json:"-" yaml:"-"`
}

// LoadError marks a single malformed test-case file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading test case %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
