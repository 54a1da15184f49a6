package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/darshil0/ai-testing/internal/judge"
	"github.com/darshil0/ai-testing/internal/model"
	"github.com/darshil0/ai-testing/internal/testcase"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List test cases, configured models and judge personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			testCases, err := testcase.Load(cmd.Context(), cfg.TestCasesDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Test cases (%s):\n", cfg.TestCasesDir)
			for _, tc := range testCases {
				fmt.Fprintf(out, "  - %s [%s, %s]\n", tc.Name, tc.Category, tc.Difficulty)
			}
			fmt.Fprintln(out, "\nModels:")
			for _, m := range cfg.Models {
				note := ""
				if _, err := model.Parse(m); err != nil {
					note = fmt.Sprintf(" (unknown provider, want one of %s; skipped at run time)", strings.Join(model.Providers(), ", "))
				}
				fmt.Fprintf(out, "  - %s%s\n", m, note)
			}
			fmt.Fprintf(out, "\nJudge: %s (persona %s, %d samples)\n", cfg.Judge.Model, cfg.Judge.Persona, cfg.Judge.Samples)
			fmt.Fprintln(out, "\nPersonas:")
			for _, p := range judge.Personas() {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return nil
		},
	}
}
