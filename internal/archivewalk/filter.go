// Package archivewalk lists the contents of the docs directory and of
// individual ZIP archives within it, applying glob include/exclude
// filtering along the way.
package archivewalk

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchesInclude returns true if name matches any of the include
// patterns. If patterns is empty, everything is included.
func MatchesInclude(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(name, patterns)
}

// MatchesExclude returns true if name matches any of the exclude
// patterns. If patterns is empty, nothing is excluded.
func MatchesExclude(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	return matchesAny(name, patterns)
}

func matchesAny(name string, patterns []string) bool {
	normalized := filepath.ToSlash(name)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, normalized); err == nil && matched {
			return true
		}
		base := filepath.Base(normalized)
		if matched, err := doublestar.PathMatch(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
