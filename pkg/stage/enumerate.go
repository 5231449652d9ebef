// Package stage implements the staging half of the pipeline: change
// enumeration, file classification, strategy selection, and batch
// execution against the VCS stage primitive.
package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/stagehand/pkg/gitx"
)

// ErrPathOutsideRepository marks a pattern that resolves above the
// repository root. It is a per-pattern skip, never a whole-call abort.
var ErrPathOutsideRepository = errors.New("path outside repository")

// StatusSource supplies porcelain status entries. *gitx.Client
// implements it.
type StatusSource interface {
	Status() ([]gitx.StatusEntry, error)
}

// Enumerator lists unstaged work and expands caller patterns into
// validated repo-relative paths. Read-only; no side effects.
type Enumerator struct {
	root   string
	status StatusSource
}

// NewEnumerator creates an enumerator for the repository rooted at root.
func NewEnumerator(root string, status StatusSource) *Enumerator {
	return &Enumerator{root: root, status: status}
}

// ListUnstaged returns repo-relative paths with unstaged changes:
// worktree modifications, worktree deletions, partially staged adds,
// and (when requested) untracked files.
func (e *Enumerator) ListUnstaged(includeUntracked bool) ([]string, error) {
	entries, err := e.status.Status()
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		switch {
		case entry.Worktree == 'M' || entry.Worktree == 'D':
			// Covers both unstaged edits and partially staged adds
			// (index A, worktree M).
			paths = append(paths, entry.Path)
		case includeUntracked && entry.Index == '?':
			paths = append(paths, entry.Path)
		}
	}
	return paths, nil
}

// ExpandPatterns resolves each pattern to repo-relative file paths.
// Directories expand recursively, plain files resolve directly, and
// anything else is glob-matched. Patterns escaping the repository root
// are skipped with a warning rather than failing the call.
func (e *Enumerator) ExpandPatterns(patterns []string) (paths []string, warnings []string, err error) {
	seen := make(map[string]bool)
	add := func(rel string) {
		rel = filepath.ToSlash(rel)
		if !seen[rel] {
			seen[rel] = true
			paths = append(paths, rel)
		}
	}

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		rel, relErr := e.normalize(pattern)
		if relErr != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %q: %v", pattern, relErr))
			continue
		}

		abs := filepath.Join(e.root, rel)
		info, statErr := os.Stat(abs)
		switch {
		case statErr == nil && info.IsDir():
			if walkErr := e.walkDir(abs, add); walkErr != nil {
				return nil, warnings, fmt.Errorf("expanding %q: %w", pattern, walkErr)
			}
		case statErr == nil:
			add(rel)
		default:
			matches, globErr := filepath.Glob(abs)
			if globErr != nil {
				warnings = append(warnings, fmt.Sprintf("skipping %q: bad pattern: %v", pattern, globErr))
				continue
			}
			if len(matches) == 0 {
				warnings = append(warnings, fmt.Sprintf("skipping %q: no matches", pattern))
				continue
			}
			for _, match := range matches {
				matchRel, matchErr := e.normalize(match)
				if matchErr != nil {
					warnings = append(warnings, fmt.Sprintf("skipping %q: %v", match, matchErr))
					continue
				}
				if matchInfo, err := os.Stat(match); err == nil && matchInfo.IsDir() {
					if walkErr := e.walkDir(match, add); walkErr != nil {
						return nil, warnings, fmt.Errorf("expanding %q: %w", pattern, walkErr)
					}
					continue
				}
				add(matchRel)
			}
		}
	}
	return paths, warnings, nil
}

// normalize cleans a pattern and verifies it resolves under the
// repository root, returning its repo-relative form.
func (e *Enumerator) normalize(pattern string) (string, error) {
	abs := pattern
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(e.root, pattern)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(e.root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRepository, pattern)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRepository, pattern)
	}
	return rel, nil
}

// walkDir adds every regular file under dir, skipping .git.
func (e *Enumerator) walkDir(dir string, add func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(e.root, path)
		if relErr != nil {
			return relErr
		}
		add(rel)
		return nil
	})
}
