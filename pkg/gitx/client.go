// Package gitx wraps the version-control collaborators the staging
// engine depends on: status/diff queries through git porcelain and the
// stage/commit primitives through go-git. A Client serializes all
// index-mutating calls, so concurrent batch submission is safe against
// a single repository.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotARepository is returned when no repository root can be found.
var ErrNotARepository = errors.New("not a git repository")

// StatusEntry is one two-character porcelain status code plus path.
type StatusEntry struct {
	Index    byte // staged column
	Worktree byte // working-tree column
	Path     string
	OrigPath string // set for renames and copies
}

// DiffStats carries per-invocation line-change statistics for the
// staged set. Consumed opportunistically; zero values are fine.
type DiffStats struct {
	Files       int
	Insertions  int
	Deletions   int
	BinaryFiles int
}

// TotalChanges returns insertions + deletions.
func (ds DiffStats) TotalChanges() int {
	return ds.Insertions + ds.Deletions
}

// CommitOptions control the commit primitive.
type CommitOptions struct {
	Amend       bool
	AllowEmpty  bool
	AuthorName  string
	AuthorEmail string
}

// Client is a handle on one repository. Index-mutating operations
// (Stage, Commit) hold an internal mutex; read-only queries do not.
type Client struct {
	repo *git.Repository
	root string
	mu   sync.Mutex
}

// Open discovers the repository containing path and returns a client
// bound to its root. Returns ErrNotARepository when there is none.
func Open(path string) (*Client, error) {
	if path == "" {
		path = "."
	}
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotARepository, path)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}

	return &Client{
		repo: repo,
		root: wt.Filesystem.Root(),
	}, nil
}

// Root returns the absolute repository root.
func (c *Client) Root() string {
	return c.root
}

// Status returns all porcelain status entries, untracked files listed
// individually.
func (c *Client) Status() ([]StatusEntry, error) {
	out, err := c.gitOutput("status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}
	return parsePorcelain(out), nil
}

// parsePorcelain parses `git status --porcelain` output.
func parsePorcelain(out string) []StatusEntry {
	var entries []StatusEntry
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		entry := StatusEntry{
			Index:    line[0],
			Worktree: line[1],
			Path:     line[3:],
		}
		if orig, renamed, ok := strings.Cut(entry.Path, " -> "); ok {
			entry.OrigPath = unquotePath(orig)
			entry.Path = unquotePath(renamed)
		} else {
			entry.Path = unquotePath(entry.Path)
		}
		entries = append(entries, entry)
	}
	return entries
}

// unquotePath strips the quoting git applies to paths with special
// characters.
func unquotePath(p string) string {
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		if unquoted, err := strconv.Unquote(p); err == nil {
			return unquoted
		}
	}
	return p
}

// Stage stages one window of repo-relative paths. The call is
// serialized against other index mutations; once started it runs to
// completion, so ctx is only consulted before the primitive spawns.
func (c *Client) Stage(ctx context.Context, paths []string, force bool) error {
	if len(paths) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	args := []string{"add"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, "--")
	args = append(args, paths...)

	cmd := exec.Command("git", args...)
	cmd.Dir = c.root
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git add: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// StagedFiles returns the repo-relative paths currently staged.
func (c *Client) StagedFiles() ([]string, error) {
	out, err := c.gitOutput("diff", "--cached", "--name-only")
	if err != nil {
		return nil, fmt.Errorf("git diff --cached: %w", err)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, unquotePath(line))
		}
	}
	return files, nil
}

// DiffStats returns line-change statistics for the staged set.
func (c *Client) DiffStats() (DiffStats, error) {
	out, err := c.gitOutput("diff", "--cached", "--numstat")
	if err != nil {
		return DiffStats{}, fmt.Errorf("git diff --numstat: %w", err)
	}

	var stats DiffStats
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue
		}
		stats.Files++

		ins, errIns := strconv.Atoi(parts[0])
		del, errDel := strconv.Atoi(parts[1])
		if errIns != nil || errDel != nil {
			stats.BinaryFiles++
			continue
		}
		stats.Insertions += ins
		stats.Deletions += del
	}
	return stats, nil
}

// Branch returns the current branch name, or a short hash when HEAD is
// detached.
func (c *Client) Branch() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String()[:8], nil
}

// Head returns the full hash of the current HEAD commit.
func (c *Client) Head() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// UnmergedPaths returns paths with unresolved merge conflicts.
func (c *Client) UnmergedPaths() ([]string, error) {
	out, err := c.gitOutput("ls-files", "--unmerged")
	if err != nil {
		return nil, fmt.Errorf("git ls-files --unmerged: %w", err)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		// Format: mode hash stage\tpath
		_, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		path = unquotePath(strings.TrimSpace(path))
		if path != "" && !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// RebaseInProgress reports whether a rebase is underway.
func (c *Client) RebaseInProgress() bool {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(c.root, ".git", dir)); err == nil {
			return true
		}
	}
	return false
}

// Commit invokes the commit primitive with the message as its single
// argument and returns the new commit hash. The call is serialized
// against other index mutations.
func (c *Client) Commit(ctx context.Context, message string, opts CommitOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	wt, err := c.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree: %w", err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Amend:             opts.Amend,
		AllowEmptyCommits: opts.AllowEmpty,
		Author: &object.Signature{
			Name:  opts.AuthorName,
			Email: opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", err
	}

	if hash.IsZero() {
		// Fall back to HEAD immediately after the primitive.
		return c.Head()
	}
	return hash.String(), nil
}

func (c *Client) gitOutput(args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"--no-pager"}, args...)...)
	cmd.Dir = c.root
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(output), "\n"), nil
}
