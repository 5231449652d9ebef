// Package engine ties enumeration, classification, staging, analysis,
// message synthesis, validation, and commit execution into one
// commit-preparation pipeline.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/stagehand/pkg/analyze"
	"github.com/odvcencio/stagehand/pkg/commit"
	"github.com/odvcencio/stagehand/pkg/config"
	"github.com/odvcencio/stagehand/pkg/gitx"
	"github.com/odvcencio/stagehand/pkg/logging"
	"github.com/odvcencio/stagehand/pkg/message"
	"github.com/odvcencio/stagehand/pkg/stage"
	"github.com/odvcencio/stagehand/pkg/telemetry"
	"github.com/odvcencio/stagehand/pkg/validate"
)

// Engine drives the whole commit-preparation flow for one repository.
type Engine struct {
	cfg        *config.Config
	git        *gitx.Client
	classifier analyze.Classifier
	log        *logging.Logger
	sink       telemetry.Sink
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithClassifier swaps in an alternative commit-type classifier.
func WithClassifier(c analyze.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithLogger attaches a structured event logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithSink attaches a telemetry sink.
func WithSink(s telemetry.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// New opens the repository containing dir and builds an engine over it.
func New(dir string, cfg *config.Config, opts ...Option) (*Engine, error) {
	git, err := gitx.Open(dir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		git:        git,
		classifier: analyze.NewTaxonomyClassifier(),
		sink:       telemetry.NopSink{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Root returns the repository root the engine operates on.
func (e *Engine) Root() string {
	return e.git.Root()
}

// StageRequest selects which changes to stage.
type StageRequest struct {
	// Patterns are files, directories, or globs relative to the
	// working directory. Empty means all unstaged changes.
	Patterns []string

	// Untracked includes files git has never seen. Only consulted when
	// Patterns is empty.
	Untracked bool

	// Force stages files that .gitignore would exclude.
	Force bool
}

// StageResult reports what a staging run did.
type StageResult struct {
	Strategy stage.Strategy
	Staged   []string
	Errors   []string
	Warnings []string
}

// Stage enumerates candidates, classifies them, picks a strategy, and
// stages in category-ordered windows.
func (e *Engine) Stage(ctx context.Context, req StageRequest) (*StageResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "stage")
	defer span.End()

	enum := stage.NewEnumerator(e.git.Root(), e.git)

	var (
		paths    []string
		warnings []string
		err      error
	)
	if len(req.Patterns) > 0 {
		paths, warnings, err = enum.ExpandPatterns(req.Patterns)
	} else {
		paths, err = enum.ListUnstaged(req.Untracked)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	e.sink.Gauge(telemetry.MetricCandidateFiles, int64(len(paths)))
	e.sink.Incr(telemetry.MetricFilesEnumerated, int64(len(paths)))
	e.log.Info(logging.CategoryEnumerate, "enumerate_done",
		fmt.Sprintf("%d candidate files", len(paths)), nil)

	if len(paths) == 0 {
		return &StageResult{Warnings: warnings}, nil
	}

	classifyStart := time.Now()
	set := stage.Classify(e.git.Root(), paths)
	e.sink.Observe(telemetry.MetricClassifyDuration, time.Since(classifyStart))
	e.log.Debug(logging.CategoryClassify, "classify_done",
		fmt.Sprintf("%d files classified", set.Count()), nil)

	strat := stage.SelectStrategy(set.Count(), e.cfg.Staging)
	e.log.Info(logging.CategoryStage, "strategy_selected",
		string(strat.Type), map[string]any{
			"files":       set.Count(),
			"batch_size":  strat.BatchSize,
			"max_workers": strat.MaxWorkers,
		})

	batcher := stage.NewBatchStager(e.git, e.log, e.sink)
	result := batcher.Stage(ctx, set, strat, req.Force)

	span.SetAttributes(
		telemetry.AttrStageStrategy.String(string(strat.Type)),
		telemetry.AttrStageFiles.Int(len(result.Staged)),
		telemetry.AttrStageErrors.Int(len(result.Errors)),
	)

	return &StageResult{
		Strategy: strat,
		Staged:   result.Staged,
		Errors:   result.Errors,
		Warnings: warnings,
	}, nil
}

// CommitRequest controls message synthesis and commit execution.
type CommitRequest struct {
	// Message, when set, is used verbatim and synthesis is skipped.
	Message string

	// Template overrides the configured message template.
	Template string

	// DryRun prepares and validates everything but does not commit.
	DryRun bool

	AllowEmpty bool
	Amend      bool
}

// CommitResult carries the prepared message, validation findings, and
// the created commit when one was made.
type CommitResult struct {
	Message    string
	Analysis   analyze.Analysis
	Validation validate.Report
	Quality    []string
	Hash       string
	Advisories []string
	DryRun     bool
}

// PrepareMessage synthesizes a commit message for the currently staged
// set without committing.
func (e *Engine) PrepareMessage(template string) (string, analyze.Analysis, error) {
	staged, err := e.git.StagedFiles()
	if err != nil {
		return "", analyze.Analysis{}, fmt.Errorf("reading staged files: %w", err)
	}

	analysis := e.classifier.Classify(staged)
	analysis.Scope = analyze.DetectScope(staged)
	e.log.Info(logging.CategoryAnalyze, "classified", analysis.Type, map[string]any{
		"confidence": analysis.Confidence,
		"scope":      analysis.Scope,
	})

	if template == "" {
		template = e.cfg.Message.Template
	}
	subject := message.Build(analysis, analysis.Scope, template)

	msgCfg := e.cfg.Message
	if e.cfg.Message.Conventional || strings.Contains(template, "{scope}") {
		// The conventional rewrite or the template already places the
		// scope; prepending it again would stack it.
		msgCfg.PrependScope = false
	}
	subject = message.Optimize(subject, msgCfg, analysis.Scope)
	if e.cfg.Message.Conventional {
		subject = message.ToConventional(subject, analysis.Scope)
	}

	stats, _ := e.git.DiffStats()
	body := message.BuildBody(staged, stats)
	e.log.Debug(logging.CategoryMessage, "message_built", subject, map[string]any{
		"has_body": body != "",
	})
	return message.Compose(subject, body), analysis, nil
}

// Commit validates the staged set, settles on a message, and commits.
func (e *Engine) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "commit")
	defer span.End()
	span.SetAttributes(telemetry.AttrCommitDryRun.Bool(req.DryRun))

	staged, err := e.git.StagedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading staged files: %w", err)
	}

	validator := validate.NewValidator(e.git.Root(), e.cfg.Validation, e.log, e.sink)
	report := validator.Validate(staged)

	res := &CommitResult{Validation: report, DryRun: req.DryRun}
	if len(report.Blocking) > 0 {
		e.sink.Gauge(telemetry.MetricValidationBlocked, int64(len(report.Blocking)))
		err := fmt.Errorf("%w: %s", validate.ErrBlocked, report.Blocking[0])
		span.RecordError(err)
		return res, err
	}

	msg := req.Message
	if msg == "" {
		msg, res.Analysis, err = e.PrepareMessage(req.Template)
		if err != nil {
			return nil, err
		}
	} else if e.cfg.Message.Conventional {
		scope := analyze.DetectScope(staged)
		msgCfg := e.cfg.Message
		// The conventional rewrite below places the scope.
		msgCfg.PrependScope = false
		optimized := message.Optimize(msg, msgCfg, scope)
		subject, body, hasBody := strings.Cut(optimized, "\n")
		msg = message.ToConventional(subject, scope)
		if hasBody {
			msg += "\n" + body
		}
	}
	res.Message = msg
	res.Quality = message.CheckQuality(msg, e.cfg.Message.MaxSubjectLength)

	if req.DryRun {
		return res, nil
	}

	committer := commit.NewCommitter(e.git, e.log, e.sink)
	outcome, err := committer.Commit(ctx, msg, commit.Options{
		AllowEmpty:  req.AllowEmpty,
		Amend:       req.Amend,
		AuthorName:  e.cfg.Author.Name,
		AuthorEmail: e.cfg.Author.Email,
	})
	if err != nil {
		span.RecordError(err)
		return res, err
	}

	span.SetAttributes(
		telemetry.AttrCommitType.String(res.Analysis.Type),
		telemetry.AttrCommitHash.String(outcome.Hash),
	)
	res.Hash = outcome.Hash
	res.Advisories = outcome.Advisories
	return res, nil
}
