package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/darshil0/ai-testing/internal/backend"
	"github.com/darshil0/ai-testing/internal/config"
	"github.com/darshil0/ai-testing/internal/judge"
	"github.com/darshil0/ai-testing/internal/model"
)

var (
	cfgFile  string
	logLevel string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aieval",
		Short:         "Evaluate AI models against a suite of test cases",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			cmd.SetContext(clog.WithLogger(ctx, logger))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "aieval.yaml", "config file path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newSchemaCmd())
	return root
}

// loadConfig reads --config. A missing file at the default path falls back
// to the built-in defaults; a missing file that was asked for is an error.
func loadConfig(cmd *cobra.Command) (*config.RunConfig, error) {
	cfg, err := config.Load(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		clog.WarnContextf(cmd.Context(), "config %s not found, using defaults", cfgFile)
		return config.Default(), nil
	}
	return nil, err
}

// newJudge builds the scorer for cfg.Judge. A simulated judge model scores
// keyword coverage offline; any other provider goes through the factory.
func newJudge(ctx context.Context, cfg *config.RunConfig, factory *backend.Factory) (*judge.Scorer, error) {
	id, err := model.Parse(cfg.Judge.Model)
	if err != nil {
		return nil, &config.Error{Field: "judge.model", Err: err}
	}

	var b model.Backend
	if id.Provider == model.Simulated {
		b = judge.NewKeywordJudge(id.Name)
	} else {
		b, err = factory.New(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("judge %s: %w", id, err)
		}
	}

	params := cfg.DefaultModelParams.Params()
	// Judge calls always run at temperature 0.
	params.Temperature = 0
	return judge.New(judge.Options{
		Backend:   b,
		Params:    params,
		Retry:     cfg.RetryConfig(),
		Retryable: backend.IsRetryable,
		Samples:   cfg.Judge.Samples,
		Timeout:   cfg.DefaultModelParams.Timeout(),
	}), nil
}
