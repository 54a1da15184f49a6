package result

import "time"

// EvaluationResult is the record for one (test case, model) pair. It is
// assembled once by the orchestrator and not modified afterwards.
type EvaluationResult struct {
	TestCaseName    string         `json:"test_case_name"`
	Category        string         `json:"category"`
	Difficulty      string         `json:"difficulty"`
	ModelType       string         `json:"model_type"`
	Prompt          string         `json:"prompt"`
	Response        string         `json:"response"`
	DurationSeconds float64        `json:"duration_seconds"`
	TokensInput     int            `json:"tokens_input"`
	TokensOutput    int            `json:"tokens_output"`
	EstimatedCost   float64        `json:"estimated_cost"`
	JudgeScore      *float64       `json:"judge_score"`
	JudgeReasoning  string         `json:"judge_reasoning"`
	PIIFound        bool           `json:"pii_found"`
	PIITypes        []string       `json:"pii_types"`
	Timestamp       time.Time      `json:"timestamp"`
	Error           string         `json:"error,omitempty"`
	RunID           string         `json:"run_id,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Failed reports whether the model call for this pair failed.
func (r *EvaluationResult) Failed() bool {
	return r.Error != ""
}

// Manifest describes a run; it is written next to the exported results.
type Manifest struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Mode       string    `json:"mode"`
	Persona    string    `json:"persona"`
	JudgeModel string    `json:"judge_model"`
	Models     []string  `json:"models"`
	TestCases  []string  `json:"test_cases"`
	Results    int       `json:"results"`
	Errors     int       `json:"errors"`
	Files      []string  `json:"files,omitempty"`
}
