package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/darshil0/ai-testing/internal/backend"
	"github.com/darshil0/ai-testing/internal/config"
	"github.com/darshil0/ai-testing/internal/judge"
	"github.com/darshil0/ai-testing/internal/result"
	"github.com/darshil0/ai-testing/internal/testcase"
)

var flagValidatePersona string

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <results-file>",
		Short: "Re-score an existing export with the configured judge",
		Long: "Read a results.json or results.jsonl export, re-run the judge on every successful " +
			"response using the current judge model and persona, and write <file>.rescored.json " +
			"next to it. Expectations are read from the test case directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if flagValidatePersona != "" {
				cfg.Judge.Persona = flagValidatePersona
			}
			persona, err := judge.ParsePersona(cfg.Judge.Persona)
			if err != nil {
				return err
			}

			results, err := result.ReadFile(args[0])
			if err != nil {
				return err
			}

			env, err := config.LoadEnv(ctx, cfg.Secrets.EnvFile)
			if err != nil {
				return err
			}
			scorer, err := newJudge(ctx, cfg, &backend.Factory{Env: env})
			if err != nil {
				return err
			}

			testCases, err := testcase.Load(ctx, cfg.TestCasesDir)
			if err != nil {
				return err
			}
			byName := make(map[string]testcase.TestCase, len(testCases))
			for _, tc := range testCases {
				byName[tc.Name] = tc
			}

			rescored := 0
			for i := range results {
				r := &results[i]
				if r.Failed() {
					continue
				}
				tc, ok := byName[r.TestCaseName]
				if !ok {
					clog.WarnContextf(ctx, "skipping %s/%s: test case not found in %s", r.TestCaseName, r.ModelType, cfg.TestCasesDir)
					continue
				}
				old := r.JudgeScore
				score, reasoning, err := scorer.ScoreTask(ctx, r.Prompt, r.Response, tc.Expectations, persona)
				if err != nil {
					clog.WarnContextf(ctx, "judge failed for %s/%s: %v", r.TestCaseName, r.ModelType, err)
					continue
				}
				r.JudgeScore, r.JudgeReasoning = score, reasoning
				rescored++
				fmt.Fprintf(cmd.OutOrStdout(), "%s / %s: %s -> %s\n", r.TestCaseName, r.ModelType, formatOptional(old), formatOptional(score))
			}

			out := rescoredPath(args[0])
			if err := result.WriteJSON(out, results); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Re-scored %d of %d results with persona %s; wrote %s\n", rescored, len(results), persona, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagValidatePersona, "persona", "", "judge persona (overrides config)")
	return cmd
}

// rescoredPath maps results.jsonl to results.rescored.json.
func rescoredPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".rescored.json"
}

func formatOptional(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *f)
}
