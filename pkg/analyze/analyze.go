// Package analyze derives a commit type, keywords, and scope from the
// staged set's paths. Classification is deterministic and pure: the
// same staged paths always produce the same analysis.
package analyze

import (
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Analysis describes one staged change set.
type Analysis struct {
	Type       string
	Confidence float64
	Scope      string
	Keywords   []string
}

// Classifier infers a commit type from staged paths. Implementations
// must be pure so alternative taxonomies can be swapped in without
// touching the staging or commit pipeline.
type Classifier interface {
	Classify(stagedPaths []string) Analysis
}

// taxonomyEntry is one commit-type candidate. Declaration order breaks
// score ties.
type taxonomyEntry struct {
	name       string
	keywords   []string
	globs      []string
	multiplier float64
}

// TaxonomyClassifier scores staged paths against a fixed commit-type
// taxonomy using keyword substrings and filename globs.
type TaxonomyClassifier struct {
	entries []taxonomyEntry
}

// NewTaxonomyClassifier returns the default taxonomy.
func NewTaxonomyClassifier() *TaxonomyClassifier {
	return &TaxonomyClassifier{entries: []taxonomyEntry{
		{
			name:       "feature",
			keywords:   []string{"feature", "feat", "implement", "introduce"},
			globs:      []string{"*feature*", "*feat*"},
			multiplier: 0.8,
		},
		{
			name:       "fix",
			keywords:   []string{"fix", "bug", "patch", "hotfix", "issue"},
			globs:      []string{"*fix*", "*bug*", "*patch*"},
			multiplier: 0.9,
		},
		{
			name:       "refactor",
			keywords:   []string{"refactor", "restructure", "cleanup", "rework"},
			globs:      []string{"*refactor*"},
			multiplier: 0.7,
		},
		{
			name:       "docs",
			keywords:   []string{"readme", "changelog", "guide", "manual", "doc"},
			globs:      []string{"*.md", "*.rst", "*.adoc", "*.txt"},
			multiplier: 0.9,
		},
		{
			name:       "test",
			keywords:   []string{"test", "spec", "fixture", "mock"},
			globs:      []string{"*_test.go", "test_*", "*.test.*", "*.spec.*"},
			multiplier: 0.9,
		},
		{
			name:       "style",
			keywords:   []string{"style", "format", "lint", "prettier", "eslint"},
			globs:      []string{"*.css", "*.scss", "*.less", ".prettierrc*", ".eslintrc*", ".editorconfig"},
			multiplier: 0.8,
		},
		{
			name:       "config",
			keywords:   []string{"config", "settings", "setup", "docker", "makefile"},
			globs:      []string{"*.yaml", "*.yml", "*.toml", "*.ini", "*.cfg", "*.conf", "Dockerfile", "Makefile", "*.json"},
			multiplier: 0.8,
		},
	}}
}

const scoreFloor = 0.1

// Classify scores every taxonomy entry and returns the winner, or
// type "misc" with zero confidence when nothing clears the floor.
func (c *TaxonomyClassifier) Classify(stagedPaths []string) Analysis {
	if len(stagedPaths) == 0 {
		return Analysis{Type: "misc", Keywords: []string{}}
	}

	joined := strings.ToLower(strings.Join(stagedPaths, " "))

	best := -1
	bestScore := 0.0
	for i, entry := range c.entries {
		globMatches := 0
		for _, p := range stagedPaths {
			if matchesAny(p, entry.globs) {
				globMatches++
			}
		}
		keywordHit := 0.0
		for _, kw := range entry.keywords {
			if strings.Contains(joined, kw) {
				keywordHit = 1
				break
			}
		}

		score := (0.3*float64(globMatches) + 0.2*keywordHit) * entry.multiplier
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 || bestScore <= scoreFloor {
		return Analysis{Type: "misc", Keywords: ExtractKeywords(stagedPaths)}
	}

	confidence := bestScore
	if confidence > 1 {
		confidence = 1
	}
	return Analysis{
		Type:       c.entries[best].name,
		Confidence: confidence,
		Keywords:   ExtractKeywords(stagedPaths),
	}
}

// matchesAny matches the base name against each glob; globs containing
// a slash match against the full path instead.
func matchesAny(filePath string, globs []string) bool {
	base := path.Base(filepath.ToSlash(filePath))
	for _, glob := range globs {
		target := base
		if strings.Contains(glob, "/") {
			target = filepath.ToSlash(filePath)
		}
		if ok, err := path.Match(glob, target); err == nil && ok {
			return true
		}
	}
	return false
}

var tokenSplit = regexp.MustCompile(`[^a-zA-Z0-9]+`)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"into": true, "this": true, "that": true, "not": true, "are": true,
	"was": true, "has": true, "had": true, "can": true, "all": true,
	"new": true, "old": true, "tmp": true, "temp": true, "bak": true,
	"main": true, "index": true, "file": true, "files": true,
	"data": true, "misc": true, "info": true, "item": true, "out": true,
	"src": true, "lib": true, "pkg": true,
}

// ExtractKeywords tokenizes staged base names on non-alphanumeric
// boundaries and returns the top five tokens by frequency, dropping
// short tokens and stop-words. Ordering is deterministic: frequency
// first, then first appearance.
func ExtractKeywords(stagedPaths []string) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0

	for _, p := range stagedPaths {
		base := path.Base(filepath.ToSlash(p))
		if ext := path.Ext(base); ext != "" {
			base = strings.TrimSuffix(base, ext)
		}
		for _, token := range tokenSplit.Split(strings.ToLower(base), -1) {
			if len(token) <= 2 || stopWords[token] {
				continue
			}
			if _, seen := counts[token]; !seen {
				firstSeen[token] = order
				order++
			}
			counts[token]++
		}
	}

	tokens := make([]string, 0, len(counts))
	for token := range counts {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return firstSeen[tokens[i]] < firstSeen[tokens[j]]
	})

	if len(tokens) > 5 {
		tokens = tokens[:5]
	}
	return tokens
}
