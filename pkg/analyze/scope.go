package analyze

import (
	"path/filepath"
	"strings"
)

// scopeFallbacks are checked in order against all staged names when no
// directory holds a majority.
var scopeFallbacks = []struct {
	substring string
	scope     string
}{
	{"test", "tests"},
	{"doc", "docs"},
	{"config", "config"},
	{"lib", "core"},
	{"src", "core"},
}

// DetectScope finds a conventional-commit scope for the staged set:
// the first directory segment covering more than half the files, or a
// content-based fallback, or "" when neither applies.
func DetectScope(stagedPaths []string) string {
	if len(stagedPaths) == 0 {
		return ""
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, p := range stagedPaths {
		segment := firstSegment(p)
		if segment == "" {
			continue
		}
		if _, ok := counts[segment]; !ok {
			firstSeen[segment] = i
		}
		counts[segment]++
	}

	best := ""
	for segment, count := range counts {
		if best == "" || count > counts[best] ||
			(count == counts[best] && firstSeen[segment] < firstSeen[best]) {
			best = segment
		}
	}
	// Majority threshold: strictly more than half of all staged files.
	if best != "" && counts[best]*2 > len(stagedPaths) {
		return best
	}

	joined := strings.ToLower(strings.Join(stagedPaths, " "))
	for _, fb := range scopeFallbacks {
		if strings.Contains(joined, fb.substring) {
			return fb.scope
		}
	}
	return ""
}

func firstSegment(p string) string {
	p = filepath.ToSlash(p)
	if idx := strings.Index(p, "/"); idx > 0 {
		return p[:idx]
	}
	return ""
}
