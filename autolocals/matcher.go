package autolocals

import (
	"strings"
)

// KernelMatcher selects kernels by name.
type KernelMatcher interface {
	MatchKernel(name string) bool
}

// ExactMatcher matches kernel names exactly.
type ExactMatcher struct {
	names map[string]bool
}

// NewExactMatcher creates a matcher from a list of kernel names.
func NewExactMatcher(names []string) *ExactMatcher {
	m := &ExactMatcher{names: make(map[string]bool, len(names))}
	for _, n := range names {
		m.names[n] = true
	}
	return m
}

// MatchKernel returns true if name is in the list.
func (m *ExactMatcher) MatchKernel(name string) bool {
	return m.names[name]
}

// WildcardMatcher matches kernel names with trailing wildcard support.
//
// Supports patterns like:
//   - "reduce" - exact match
//   - "reduce_*" - every kernel whose name starts with "reduce_"
//   - "*" - matches everything
type WildcardMatcher struct {
	exact    map[string]bool
	prefixes []string
	matchAll bool
}

// NewWildcardMatcher creates a matcher with wildcard support.
func NewWildcardMatcher(patterns []string) *WildcardMatcher {
	m := &WildcardMatcher{exact: make(map[string]bool)}
	for _, p := range patterns {
		switch {
		case p == "*":
			m.matchAll = true
		case strings.HasSuffix(p, "*"):
			m.prefixes = append(m.prefixes, strings.TrimSuffix(p, "*"))
		default:
			m.exact[p] = true
		}
	}
	return m
}

// MatchKernel returns true if name matches any pattern.
func (m *WildcardMatcher) MatchKernel(name string) bool {
	if m.matchAll || m.exact[name] {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
