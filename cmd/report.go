package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/darshil0/ai-testing/internal/report"
)

var flagReportFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir|results-file]",
		Short: "Summarize stored results per model and category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			} else {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				path = filepath.Join(cfg.Results.Dir, "latest")
			}
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				return fmt.Errorf("resolving results path: %w", err)
			}
			return report.Generate(resolved, flagReportFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flagReportFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}
