// Package pii flags response text that matches configured personal-data patterns.
package pii

import (
	"context"
	"regexp"
	"sort"

	"github.com/chainguard-dev/clog"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

// Scanner holds compiled patterns. It is safe for concurrent use.
type Scanner struct {
	patterns []pattern
}

// DefaultPatterns is used when the run config declares none.
func DefaultPatterns() map[string]string {
	return map[string]string{
		"email":       `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
		"phone":       `(?:\+?\d{1,2}[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]\d{4}`,
		"ssn":         `\b\d{3}-\d{2}-\d{4}\b`,
		"credit_card": `\b(?:\d[ -]?){13,16}\b`,
	}
}

// New compiles patterns. A pattern that fails to compile is logged and left out.
func New(ctx context.Context, patterns map[string]string) *Scanner {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	s := &Scanner{}
	for _, name := range names {
		re, err := regexp.Compile(patterns[name])
		if err != nil {
			clog.WarnContextf(ctx, "skipping invalid pii pattern %q: %v", name, err)
			continue
		}
		s.patterns = append(s.patterns, pattern{name: name, re: re})
	}
	return s
}

// Scan reports whether any pattern matched and the sorted names of those that did.
func (s *Scanner) Scan(text string) (bool, []string) {
	if s == nil || text == "" {
		return false, nil
	}
	var types []string
	for _, p := range s.patterns {
		if p.re.MatchString(text) {
			types = append(types, p.name)
		}
	}
	return len(types) > 0, types
}

// Names lists the patterns that compiled.
func (s *Scanner) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		names[i] = p.name
	}
	return names
}
