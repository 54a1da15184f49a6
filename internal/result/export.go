package result

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// FileName is the file each export format is written to inside a run dir.
func FileName(format string) string {
	return "results." + format
}

// Export writes results in each format to runDir. A failing format does not
// stop the others; the written paths and every failure are returned.
func Export(ctx context.Context, runDir string, formats []string, results []EvaluationResult) ([]string, []error) {
	var (
		paths []string
		errs  []error
	)
	for _, format := range formats {
		path := filepath.Join(runDir, FileName(format))
		if err := WriteFile(path, format, results); err != nil {
			clog.ErrorContextf(ctx, "exporting %s results: %v", format, err)
			errs = append(errs, err)
			continue
		}
		clog.InfoContextf(ctx, "wrote %d results to %s", len(results), path)
		paths = append(paths, path)
	}
	return paths, errs
}

// WriteFile writes results to path in the given format (json, jsonl or csv).
func WriteFile(path, format string, results []EvaluationResult) error {
	var encode func(io.Writer, []EvaluationResult) error
	switch format {
	case "json":
		encode = EncodeJSON
	case "jsonl":
		encode = EncodeJSONL
	case "csv":
		encode = EncodeCSV
	default:
		return fmt.Errorf("unknown export format %q", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := encode(w, results); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func WriteJSON(path string, results []EvaluationResult) error {
	return WriteFile(path, "json", results)
}

func WriteJSONL(path string, results []EvaluationResult) error {
	return WriteFile(path, "jsonl", results)
}

func WriteCSV(path string, results []EvaluationResult) error {
	return WriteFile(path, "csv", results)
}

func EncodeJSON(w io.Writer, results []EvaluationResult) error {
	if results == nil {
		results = []EvaluationResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(results)
}

func EncodeJSONL(w io.Writer, results []EvaluationResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range results {
		if err := enc.Encode(&results[i]); err != nil {
			return err
		}
	}
	return nil
}

// CSVHeader is the fixed column set; metadata.<key> columns follow it.
var CSVHeader = []string{
	"test_case_name", "category", "difficulty", "model_type", "prompt", "response",
	"duration_seconds", "tokens_input", "tokens_output", "estimated_cost",
	"judge_score", "judge_reasoning", "pii_found", "pii_types", "timestamp", "error", "run_id",
}

// EncodeCSV writes one row per result. Metadata is flattened into sorted
// metadata.<key> columns, pii_types is joined with ';', and an absent
// judge score is an empty cell.
func EncodeCSV(w io.Writer, results []EvaluationResult) error {
	keySet := map[string]struct{}{}
	for _, r := range results {
		for k := range r.Metadata {
			keySet[k] = struct{}{}
		}
	}
	metaKeys := make([]string, 0, len(keySet))
	for k := range keySet {
		metaKeys = append(metaKeys, k)
	}
	sort.Strings(metaKeys)

	cw := csv.NewWriter(w)
	header := append([]string(nil), CSVHeader...)
	for _, k := range metaKeys {
		header = append(header, "metadata."+k)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		score := ""
		if r.JudgeScore != nil {
			score = formatFloat(*r.JudgeScore)
		}
		row := []string{
			r.TestCaseName, r.Category, r.Difficulty, r.ModelType, r.Prompt, r.Response,
			formatFloat(r.DurationSeconds),
			strconv.Itoa(r.TokensInput),
			strconv.Itoa(r.TokensOutput),
			formatFloat(r.EstimatedCost),
			score,
			r.JudgeReasoning,
			strconv.FormatBool(r.PIIFound),
			strings.Join(r.PIITypes, ";"),
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.Error,
			r.RunID,
		}
		for _, k := range metaKeys {
			row = append(row, metadataCell(r.Metadata, k))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func metadataCell(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// ReadFile loads results written by WriteFile, picking the decoder by
// extension (.json or .jsonl).
func ReadFile(path string) ([]EvaluationResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	defer f.Close()

	switch filepath.Ext(path) {
	case ".json":
		return DecodeJSON(f)
	case ".jsonl":
		return DecodeJSONL(f)
	}
	return nil, fmt.Errorf("reading results %s: unsupported extension", path)
}

func DecodeJSON(r io.Reader) ([]EvaluationResult, error) {
	var results []EvaluationResult
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("parsing results: %w", err)
	}
	return results, nil
}

// DecodeJSONL reads one result per line, skipping blank lines.
func DecodeJSONL(r io.Reader) ([]EvaluationResult, error) {
	var results []EvaluationResult
	dec := json.NewDecoder(r)
	for line := 1; ; line++ {
		var res EvaluationResult
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			return results, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parsing results record %d: %w", line, err)
		}
		results = append(results, res)
	}
}
