package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/darshil0/ai-testing/internal/testcase"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of structured (yaml/json) test cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(testcase.Schema())
		},
	}
}
