// Package commit executes the commit after the staged set and message
// have passed their checks. All preconditions are evaluated before the
// version-control primitive is touched.
package commit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/stagehand/pkg/gitx"
	"github.com/odvcencio/stagehand/pkg/logging"
	"github.com/odvcencio/stagehand/pkg/telemetry"
)

var (
	// ErrInvalidMessage means the message failed static checks and the
	// commit was never attempted.
	ErrInvalidMessage = errors.New("invalid commit message")

	// ErrConflictsPresent means unresolved merge conflicts exist.
	ErrConflictsPresent = errors.New("unresolved merge conflicts")

	// ErrNothingToCommit means the index holds no staged changes.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrCommitFailed wraps a failure from the commit primitive itself.
	ErrCommitFailed = errors.New("commit failed")
)

// maxMessageLength bounds the whole message, subject and body.
const maxMessageLength = 4096

// Repository is the slice of gitx.Client the committer needs.
type Repository interface {
	StagedFiles() ([]string, error)
	UnmergedPaths() ([]string, error)
	RebaseInProgress() bool
	Commit(ctx context.Context, message string, opts gitx.CommitOptions) (string, error)
}

// Options controls a single commit attempt.
type Options struct {
	AllowEmpty  bool
	Amend       bool
	AuthorName  string
	AuthorEmail string
}

// Outcome reports what the commit produced.
type Outcome struct {
	Hash       string
	Message    string
	FilesCount int
	Advisories []string
}

// Committer runs precondition checks and then the commit itself.
type Committer struct {
	repo Repository
	log  *logging.Logger
	sink telemetry.Sink
}

// NewCommitter wires a committer over an open repository.
func NewCommitter(repo Repository, log *logging.Logger, sink telemetry.Sink) *Committer {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Committer{repo: repo, log: log, sink: sink}
}

// ValidateMessage statically checks a commit message. It rejects empty
// subjects, oversized messages, and characters that would be dangerous
// if the message ever passed through a shell.
func ValidateMessage(message string) error {
	subject, _, _ := strings.Cut(message, "\n")
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("%w: empty subject line", ErrInvalidMessage)
	}
	if len(message) > maxMessageLength {
		return fmt.Errorf("%w: message is %d bytes, limit %d", ErrInvalidMessage, len(message), maxMessageLength)
	}
	if strings.ContainsRune(message, 0) {
		return fmt.Errorf("%w: message contains a null byte", ErrInvalidMessage)
	}
	for _, seq := range []string{"`", "$("} {
		if strings.Contains(message, seq) {
			return fmt.Errorf("%w: message contains %q", ErrInvalidMessage, seq)
		}
	}
	return nil
}

// Commit validates the message, checks the repository state, and only
// then invokes the commit primitive. A rebase in progress is reported
// as an advisory, not an error.
func (c *Committer) Commit(ctx context.Context, message string, opts Options) (Outcome, error) {
	if err := ValidateMessage(message); err != nil {
		return Outcome{}, err
	}

	conflicted, err := c.repo.UnmergedPaths()
	if err != nil {
		return Outcome{}, fmt.Errorf("checking for conflicts: %w", err)
	}
	if len(conflicted) > 0 {
		return Outcome{}, fmt.Errorf("%w: %s", ErrConflictsPresent, strings.Join(conflicted, ", "))
	}

	staged, err := c.repo.StagedFiles()
	if err != nil {
		return Outcome{}, fmt.Errorf("reading staged files: %w", err)
	}
	if len(staged) == 0 && !opts.AllowEmpty && !opts.Amend {
		return Outcome{}, ErrNothingToCommit
	}

	var advisories []string
	if c.repo.RebaseInProgress() {
		advisories = append(advisories, "a rebase is in progress; this commit will land on the rebased branch")
	}

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	start := time.Now()
	hash, err := c.repo.Commit(ctx, message, gitx.CommitOptions{
		Amend:       opts.Amend,
		AllowEmpty:  opts.AllowEmpty,
		AuthorName:  opts.AuthorName,
		AuthorEmail: opts.AuthorEmail,
	})
	if err != nil {
		c.log.Error(logging.CategoryCommit, "commit_failed", err.Error(), nil)
		return Outcome{}, fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}

	c.sink.Incr(telemetry.MetricCommitsCreated, 1)
	c.sink.Observe(telemetry.MetricCommitDuration, time.Since(start))
	c.log.Info(logging.CategoryCommit, "commit_created", hash, map[string]any{
		"files": len(staged),
	})

	return Outcome{
		Hash:       hash,
		Message:    message,
		FilesCount: len(staged),
		Advisories: advisories,
	}, nil
}
