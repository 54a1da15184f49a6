package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/darshil0/ai-testing/internal/backend"
	"github.com/darshil0/ai-testing/internal/config"
	"github.com/darshil0/ai-testing/internal/judge"
	"github.com/darshil0/ai-testing/internal/model"
	"github.com/darshil0/ai-testing/internal/pii"
	"github.com/darshil0/ai-testing/internal/report"
	"github.com/darshil0/ai-testing/internal/result"
	"github.com/darshil0/ai-testing/internal/runner"
	"github.com/darshil0/ai-testing/internal/telemetry"
	"github.com/darshil0/ai-testing/internal/testcase"
)

var (
	flagModels     string
	flagPersona    string
	flagTestCases  string
	flagCategory   string
	flagFormats    string
	flagParallel   int
	flagSequential bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every test case against every model",
		RunE:  runEvaluation,
	}
	cmd.Flags().StringVar(&flagModels, "models", "", "comma-separated provider:model list (overrides config)")
	cmd.Flags().StringVar(&flagPersona, "persona", "", "judge persona (default, critic, helper, auditor)")
	cmd.Flags().StringVar(&flagTestCases, "test-cases", "", "test case directory (overrides config)")
	cmd.Flags().StringVar(&flagCategory, "category", "", "filter by category; prefix/* matches a family")
	cmd.Flags().StringVar(&flagFormats, "format", "", "comma-separated export formats (json, jsonl, csv)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "max concurrent model calls (overrides max_workers)")
	cmd.Flags().BoolVar(&flagSequential, "sequential", false, "evaluate one pair at a time, in order")
	return cmd
}

func runEvaluation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cfg); err != nil {
		return err
	}

	// Settings that affect every pair are checked before anything is dispatched.
	persona, err := judge.ParsePersona(cfg.Judge.Persona)
	if err != nil {
		return err
	}
	if _, err := model.Parse(cfg.Judge.Model); err != nil {
		return &config.Error{Field: "judge.model", Err: err}
	}
	prices, err := cfg.PricingTable()
	if err != nil {
		return err
	}

	env, err := config.LoadEnv(ctx, cfg.Secrets.EnvFile)
	if err != nil {
		return err
	}

	tel, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint: firstNonEmpty(cfg.Telemetry.OTLPEndpoint, env.OTLPEndpoint),
		Headers:  firstNonEmpty(cfg.Telemetry.OTLPHeaders, env.OTLPHeaders),
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			clog.WarnContextf(ctx, "flushing traces: %v", err)
		}
	}()

	models := parseModels(ctx, cfg.Models)
	if len(models) == 0 {
		return fmt.Errorf("no valid models configured; set models in %s or pass --models", cfgFile)
	}

	testCases, err := testcase.Load(ctx, cfg.TestCasesDir)
	if err != nil {
		return err
	}
	testCases = filterTestCases(testCases, flagCategory)
	if len(testCases) == 0 {
		clog.WarnContextf(ctx, "no test cases to evaluate in %s", cfg.TestCasesDir)
	}

	factory := &backend.Factory{Env: env}
	backends, backendErrs := buildBackends(ctx, factory, models)

	scorer, err := newJudge(ctx, cfg, factory)
	if err != nil {
		clog.WarnContextf(ctx, "running without a judge: %v", err)
		scorer = nil
	}

	mode := runner.Parallel
	if flagSequential {
		mode = runner.Sequential
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	runID := result.NewRunID()
	fmt.Printf("Run %s: %d test cases x %d models (%s)\n", runID, len(testCases), len(models), mode)
	fmt.Printf("Run directory: %s\n", runDir)

	metrics := telemetry.NewMetrics()
	orch := runner.NewOrchestrator(runner.Options{
		Backends:      backends,
		BackendErrors: backendErrs,
		Judge:         scorer,
		Scanner:       pii.New(ctx, cfg.PIIPatterns),
		Pricing:       prices,
		Retry:         cfg.RetryConfig(),
		Retryable:     backend.IsRetryable,
		MaxWorkers:    cfg.MaxWorkers,
		Params:        cfg.DefaultModelParams.Params(),
		Timeout:       cfg.DefaultModelParams.Timeout(),
		Metrics:       metrics,
		Tracer:        tel.Tracer,
		RunID:         runID,
	})

	started := time.Now().UTC()
	results := orch.Run(ctx, testCases, models, persona, mode)
	finished := time.Now().UTC()

	files, exportErrs := result.Export(ctx, runDir, cfg.Results.Formats, results)
	manifest := &result.Manifest{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Mode:       string(mode),
		Persona:    string(persona),
		JudgeModel: cfg.Judge.Model,
		Models:     identifiers(models),
		TestCases:  testCaseNames(testCases),
		Results:    len(results),
		Files:      files,
	}
	for _, r := range results {
		if r.Failed() {
			manifest.Errors++
		}
	}
	if err := result.WriteManifest(runDir, manifest); err != nil {
		clog.ErrorContextf(ctx, "writing manifest: %v", err)
	}
	if cfg.Telemetry.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Telemetry.MetricsFile); err != nil {
			clog.ErrorContextf(ctx, "%v", err)
		}
	}

	fmt.Println("\n--- Results ---")
	if err := report.Write(report.Summarize(results), "table", os.Stdout); err != nil {
		return err
	}
	if len(exportErrs) > 0 {
		return fmt.Errorf("%d of %d exports failed", len(exportErrs), len(cfg.Results.Formats))
	}
	return nil
}

// applyRunFlags lays command-line overrides over the loaded config.
func applyRunFlags(cfg *config.RunConfig) error {
	if flagModels != "" {
		cfg.Models = splitList(flagModels)
	}
	if flagPersona != "" {
		cfg.Judge.Persona = flagPersona
	}
	if flagTestCases != "" {
		cfg.TestCasesDir = flagTestCases
	}
	if flagParallel < 0 {
		return &config.Error{Field: "parallel", Err: fmt.Errorf("must be at least 1, got %d", flagParallel)}
	}
	if flagParallel > 0 {
		cfg.MaxWorkers = flagParallel
	}
	if flagFormats != "" {
		formats := splitList(flagFormats)
		for _, f := range formats {
			if !slices.Contains(config.ExportFormats, f) {
				return &config.Error{Field: "format", Err: fmt.Errorf("unknown format %q", f)}
			}
		}
		cfg.Results.Formats = formats
	}
	return nil
}

// parseModels keeps the identifiers that parse; the rest are logged and dropped.
func parseModels(ctx context.Context, specs []string) []model.Identifier {
	var out []model.Identifier
	seen := map[string]bool{}
	for _, s := range specs {
		id, err := model.Parse(s)
		if err != nil {
			clog.WarnContextf(ctx, "skipping model %q: %v", s, err)
			continue
		}
		if seen[id.String()] {
			continue
		}
		seen[id.String()] = true
		out = append(out, id)
	}
	return out
}

// newBackend builds the backend for one model under evaluation.
var newBackend = func(ctx context.Context, factory *backend.Factory, id model.Identifier) (model.Backend, error) {
	return factory.New(ctx, id)
}

func buildBackends(ctx context.Context, factory *backend.Factory, models []model.Identifier) (map[string]model.Backend, map[string]error) {
	backends := make(map[string]model.Backend, len(models))
	errs := map[string]error{}
	for _, id := range models {
		b, err := newBackend(ctx, factory, id)
		if err != nil {
			clog.WarnContextf(ctx, "model %s unavailable, its pairs will be recorded as errors: %v", id, err)
			errs[id.String()] = err
			continue
		}
		backends[id.String()] = b
	}
	return backends, errs
}

func filterTestCases(tcs []testcase.TestCase, category string) []testcase.TestCase {
	if category == "" {
		return tcs
	}
	filtered := []testcase.TestCase{}
	for _, tc := range tcs {
		if matchCategory(tc.Category, category) {
			filtered = append(filtered, tc)
		}
	}
	return filtered
}

func matchCategory(category, pattern string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return strings.HasPrefix(category, prefix+"/")
	}
	return category == pattern
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func identifiers(ids []model.Identifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func testCaseNames(tcs []testcase.TestCase) []string {
	out := make([]string, len(tcs))
	for i, tc := range tcs {
		out[i] = tc.Name
	}
	return out
}
