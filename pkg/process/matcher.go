package process

import (
	"fmt"
	"strings"

	"github.com/moby/patternmatcher"
)

// Matcher selects processes by name using case-insensitive glob patterns
// such as "chromium*". A leading "!" excludes names matched by earlier patterns.
type Matcher struct {
	patterns []string
	pm       *patternmatcher.PatternMatcher
}

// NewMatcher compiles patterns. At least one pattern is required.
func NewMatcher(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no process patterns given")
	}

	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.ContainsRune(p, '/') {
			return nil, fmt.Errorf("process pattern %q must not contain '/'", p)
		}
		lowered = append(lowered, strings.ToLower(p))
	}
	if len(lowered) == 0 {
		return nil, fmt.Errorf("no process patterns given")
	}

	pm, err := patternmatcher.New(lowered)
	if err != nil {
		return nil, fmt.Errorf("compile process patterns: %w", err)
	}
	return &Matcher{patterns: lowered, pm: pm}, nil
}

// MustMatcher is NewMatcher for static pattern lists.
func MustMatcher(patterns ...string) *Matcher {
	m, err := NewMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether a process name belongs to the family.
func (m *Matcher) Match(name string) bool {
	if name == "" || strings.ContainsRune(name, '/') {
		return false
	}
	ok, err := m.pm.MatchesOrParentMatches(strings.ToLower(name))
	return err == nil && ok
}

// Patterns returns the normalized patterns.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
