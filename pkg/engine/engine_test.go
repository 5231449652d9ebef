package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/odvcencio/stagehand/pkg/commit"
	"github.com/odvcencio/stagehand/pkg/config"
	"github.com/odvcencio/stagehand/pkg/telemetry"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "init", "-b", "main")
	run(t, dir, "config", "user.name", "tester")
	run(t, dir, "config", "user.email", "tester@example.com")
	return dir
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v: %s", args, err, out)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := New(dir, config.DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestStageAndCommitDocumentationChange(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "notes.md", "# release notes\n")
	e := newEngine(t, dir)

	staged, err := e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)
	require.Empty(t, staged.Errors)
	assert.Equal(t, []string{"notes.md"}, staged.Staged)

	res, err := e.Commit(context.Background(), CommitRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Hash)
	assert.True(t, strings.HasPrefix(res.Message, "docs:"),
		"markdown-only change should commit as docs, got %q", res.Message)
}

func TestStagePatternsAreScoped(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "pkg/core/core.go", "package core\n")
	writeFile(t, dir, "pkg/api/api.go", "package api\n")
	e := newEngine(t, dir)

	staged, err := e.Stage(context.Background(), StageRequest{Patterns: []string{"pkg/core"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/core/core.go"}, staged.Staged)
}

func TestStageEscapingPatternSkippedWithWarning(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.go", "package a\n")
	e := newEngine(t, dir)

	staged, err := e.Stage(context.Background(), StageRequest{Patterns: []string{"../outside", "a.go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, staged.Staged)
	require.Len(t, staged.Warnings, 1)
	assert.Contains(t, staged.Warnings[0], "outside")
}

func TestStageIsIdempotent(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "main.go", "package main\n")
	e := newEngine(t, dir)

	first, err := e.Stage(context.Background(), StageRequest{Patterns: []string{"main.go"}})
	require.NoError(t, err)
	require.Empty(t, first.Errors)

	// Staging the same path again must succeed and land in the same
	// index state.
	second, err := e.Stage(context.Background(), StageRequest{Patterns: []string{"main.go"}})
	require.NoError(t, err)
	require.Empty(t, second.Errors)
	assert.Equal(t, first.Staged, second.Staged)
}

func TestStageAllTwiceSecondRunIsEmpty(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "docs/b.md", "# b\n")
	e := newEngine(t, dir)

	first, err := e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)
	require.Empty(t, first.Errors)
	require.Len(t, first.Staged, 2)

	// Nothing changed since the first run, so there is nothing left to
	// enumerate: the second run stages zero files and reports no errors.
	second, err := e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)
	assert.Empty(t, second.Staged)
	assert.Empty(t, second.Errors)
}

func TestStageNothingToDo(t *testing.T) {
	dir := initRepo(t)
	e := newEngine(t, dir)

	staged, err := e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)
	assert.Empty(t, staged.Staged)
	assert.Empty(t, staged.Errors)
}

func TestCommitDryRunLeavesNoCommit(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.go", "package a\n")
	e := newEngine(t, dir)

	_, err := e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)

	res, err := e.Commit(context.Background(), CommitRequest{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, res.Hash)
	assert.NotEmpty(t, res.Message)

	// No HEAD yet: the repository still has zero commits.
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	assert.Error(t, cmd.Run())
}

func TestCommitBlockedByOversizedFile(t *testing.T) {
	dir := initRepo(t)
	big := filepath.Join(dir, "dataset.bin")
	f, err := os.Create(big)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(15<<20))
	require.NoError(t, f.Close())
	e := newEngine(t, dir)

	_, err = e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)

	res, err := e.Commit(context.Background(), CommitRequest{})
	require.Error(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Validation.Blocking, 1)
	assert.Empty(t, res.Hash)
}

func TestCommitRejectsDangerousMessageBeforeGit(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.go", "package a\n")
	e := newEngine(t, dir)

	_, err := e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)

	_, err = e.Commit(context.Background(), CommitRequest{Message: "run `rm -rf` lol"})
	assert.ErrorIs(t, err, commit.ErrInvalidMessage)

	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	assert.Error(t, cmd.Run(), "no commit may exist after a rejected message")
}

func TestCommitExplicitMessageGetsConventionalized(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "pkg/core/a.go", "package core\n")
	writeFile(t, dir, "pkg/core/b.go", "package core\n")
	writeFile(t, dir, "pkg/core/c.go", "package core\n")
	e := newEngine(t, dir)

	_, err := e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)

	res, err := e.Commit(context.Background(), CommitRequest{Message: "Add the new core helpers"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Message, "feat"),
		"prose about adding should infer feat, got %q", res.Message)
}

func TestPrepareMessagePrependsScopeWhenConfigured(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "parser/lexer.go", "package parser\n")
	writeFile(t, dir, "parser/ast.go", "package parser\n")
	cfg := config.DefaultConfig()
	cfg.Message.Conventional = false
	cfg.Message.PrependScope = true
	cfg.Message.Template = "update {keywords}"
	e, err := New(dir, cfg)
	require.NoError(t, err)

	_, err = e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)

	msg, _, err := e.PrepareMessage("")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg, "parser: "),
		"detected scope must be prepended when the template omits it, got %q", msg)
	assert.Equal(t, 1, strings.Count(strings.ToLower(msg), "parser: "),
		"scope must appear exactly once, got %q", msg)
}

func TestPrepareMessageScopedTemplateNotDoubled(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "parser/lexer.go", "package parser\n")
	writeFile(t, dir, "parser/ast.go", "package parser\n")
	cfg := config.DefaultConfig()
	cfg.Message.Conventional = false
	cfg.Message.PrependScope = true
	e, err := New(dir, cfg)
	require.NoError(t, err)

	_, err = e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)

	// The default template places {scope} itself; the standalone
	// prepend must stay suppressed.
	msg, _, err := e.PrepareMessage("")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(msg, "parser: "),
		"scope must not stack on a template that already places it, got %q", msg)
	assert.Contains(t, strings.ToLower(msg), "(parser)")
}

func TestCommitNothingStaged(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "seed.txt", "x")
	run(t, dir, "add", "seed.txt")
	run(t, dir, "commit", "-m", "seed")
	e := newEngine(t, dir)

	_, err := e.Commit(context.Background(), CommitRequest{Message: "fix: phantom"})
	assert.ErrorIs(t, err, commit.ErrNothingToCommit)
}

func TestCommitRecordsMetrics(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.go", "package a\n")
	reg := telemetry.NewRegistry()
	e, err := New(dir, config.DefaultConfig(), WithSink(reg))
	require.NoError(t, err)

	_, err = e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)
	require.Greater(t, reg.CounterValue(telemetry.MetricFilesStaged), int64(0))
	assert.Greater(t, reg.CounterValue(telemetry.MetricFilesEnumerated), int64(0))
	assert.Equal(t, int64(1), reg.HistogramCount(telemetry.MetricClassifyDuration))

	_, err = e.Commit(context.Background(), CommitRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reg.CounterValue(telemetry.MetricCommitsCreated))
	assert.Equal(t, int64(1), reg.HistogramCount(telemetry.MetricCommitDuration))
}

func TestStageAndCommitEmitSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	dir := initRepo(t)
	writeFile(t, dir, "a.go", "package a\n")
	e := newEngine(t, dir)

	_, err := e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)
	_, err = e.Commit(context.Background(), CommitRequest{})
	require.NoError(t, err)

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "stage")
	assert.Contains(t, names, "commit")
}

func TestCommitQualityFlagsSurface(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.go", "package a\n")
	cfg := config.DefaultConfig()
	cfg.Message.Conventional = false
	cfg.Message.Capitalize = false
	e, err := New(dir, cfg)
	require.NoError(t, err)

	_, err = e.Stage(context.Background(), StageRequest{Untracked: true})
	require.NoError(t, err)

	res, err := e.Commit(context.Background(), CommitRequest{Message: "wip", DryRun: true})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Quality)
}

func TestEngineErrorsOutsideRepository(t *testing.T) {
	_, err := New(t.TempDir(), config.DefaultConfig())
	assert.Error(t, err)
}
