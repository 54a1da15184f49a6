package testcase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chainguard-dev/clog"
	"gopkg.in/yaml.v3"
)

// Load reads every test case in dir, sorted by name. Malformed files are
// logged and skipped; only failures to read the directory itself are returned.
func Load(ctx context.Context, dir string) ([]TestCase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading test case dir %s: %w", dir, err)
	}

	seen := make(map[string]string)
	cases := []TestCase{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		tc, err := LoadFile(path)
		if err != nil {
			clog.WarnContextf(ctx, "skipping test case: %v", err)
			continue
		}
		if prev, dup := seen[tc.Name]; dup {
			clog.WarnContextf(ctx, "skipping test case: %v", &LoadError{
				Path: path,
				Err:  fmt.Errorf("duplicate name %q, already loaded from %s", tc.Name, prev),
			})
			continue
		}
		seen[tc.Name] = path
		clog.DebugContextf(ctx, "loaded test case %s", tc.Name)
		cases = append(cases, tc)
	}

	sort.Slice(cases, func(i, j int) bool { return cases[i].Name < cases[j].Name })
	return cases, nil
}

// LoadFile parses a single test case. Every failure is a *LoadError.
func LoadFile(path string) (TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TestCase{}, &LoadError{Path: path, Err: err}
	}

	name := NameFromPath(path)
	var tc TestCase
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		tc, err = parseYAML(data)
	case ".json":
		tc, err = parseJSON(data)
	default:
		tc, err = parseFlat(data)
	}
	if err != nil {
		return TestCase{}, &LoadError{Path: path, Err: err}
	}

	if tc.Name != "" && tc.Name != name {
		return TestCase{}, &LoadError{Path: path, Err: fmt.Errorf("name %q does not match file name %q", tc.Name, name)}
	}
	tc.Name = name
	tc.Path = path
	if tc.Metadata, err = normalizeMetadata(tc.Metadata); err != nil {
		return TestCase{}, &LoadError{Path: path, Err: err}
	}
	if err := tc.validate(); err != nil {
		return TestCase{}, &LoadError{Path: path, Err: err}
	}
	return tc, nil
}

// normalizeMetadata passes metadata through JSON so it holds the same
// types a decoded result file would (float64 numbers, RFC 3339 strings).
func normalizeMetadata(md map[string]any) (map[string]any, error) {
	if len(md) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("metadata is not JSON-representable: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("metadata is not JSON-representable: %w", err)
	}
	return out, nil
}

// NameFromPath derives a test case's identity from its file name.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (tc *TestCase) validate() error {
	var missing []string
	if strings.TrimSpace(tc.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(tc.Difficulty) == "" {
		missing = append(missing, "difficulty")
	}
	if strings.TrimSpace(tc.Prompt) == "" {
		missing = append(missing, "prompt")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// structured accepts the older expected_keywords field as an alias.
type structured struct {
	TestCase         `yaml:",inline"`
	ExpectedKeywords []string `json:"expected_keywords,omitempty" yaml:"expected_keywords,omitempty"`
}

func (s structured) testCase() TestCase {
	tc := s.TestCase
	if len(tc.Expectations) == 0 {
		tc.Expectations = s.ExpectedKeywords
	}
	return tc
}

func parseYAML(data []byte) (TestCase, error) {
	var s structured
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return TestCase{}, errors.New("empty file")
		}
		return TestCase{}, fmt.Errorf("parsing yaml: %w", err)
	}
	return s.testCase(), nil
}

func parseJSON(data []byte) (TestCase, error) {
	var s structured
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return TestCase{}, fmt.Errorf("parsing json: %w", err)
	}
	return s.testCase(), nil
}

// parseFlat reads "Key: value" headers up to the first blank line; the
// rest is the prompt.
func parseFlat(data []byte) (TestCase, error) {
	var (
		tc      TestCase
		body    strings.Builder
		inBody  bool
		headers int
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if inBody {
			body.WriteString(line)
			body.WriteByte('\n')
			continue
		}
		if strings.TrimSpace(line) == "" {
			if headers > 0 {
				inBody = true
			}
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return TestCase{}, fmt.Errorf("header line %q is not \"Key: value\"; headers must be followed by a blank line", line)
		}
		headers++
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch strings.ToLower(key) {
		case "category":
			tc.Category = val
		case "difficulty":
			tc.Difficulty = val
		default:
			if tc.Metadata == nil {
				tc.Metadata = make(map[string]any)
			}
			tc.Metadata[strings.ToLower(key)] = val
		}
	}
	if err := sc.Err(); err != nil {
		return TestCase{}, err
	}
	if !inBody {
		return TestCase{}, errors.New("no blank line between headers and prompt")
	}
	tc.Prompt = strings.TrimSpace(body.String())
	return tc, nil
}
