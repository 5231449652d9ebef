// Command stagehand prepares git commits: it enumerates changes,
// stages them in batches, synthesizes a commit message, validates the
// staged set, and commits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/odvcencio/stagehand/pkg/config"
	"github.com/odvcencio/stagehand/pkg/engine"
	"github.com/odvcencio/stagehand/pkg/logging"
	"github.com/odvcencio/stagehand/pkg/telemetry"
	"github.com/odvcencio/stagehand/pkg/terminal"
)

// Version information - set via ldflags during build
var (
	version   = "0.1.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	out := terminal.New()

	if len(args) == 0 {
		printUsage(out)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "stage":
		return runStage(ctx, out, args[1:])
	case "commit":
		return runCommit(ctx, out, args[1:])
	case "analyze":
		return runAnalyze(ctx, out, args[1:])
	case "version":
		fmt.Printf("stagehand %s (commit %s, built %s)\n", version, commit, buildDate)
		return 0
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		out.Error("unknown command %q", args[0])
		printUsage(out)
		return 2
	}
}

func printUsage(out *terminal.Writer) {
	out.Println("usage: stagehand <command> [flags]")
	out.Newline()
	out.Println("commands:")
	out.Println("  stage    stage changed files in batches")
	out.Println("  commit   validate the staged set, synthesize a message, and commit")
	out.Println("  analyze  show the inferred commit type and message for the staged set")
	out.Println("  version  print version information")
}

// newEngine loads configuration and opens the repository containing
// the working directory. The returned cleanup closes the run log and
// flushes the tracer when one was started.
func newEngine(out *terminal.Writer) (*engine.Engine, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var opts []engine.Option
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if cfg.Logging.Enabled && cfg.Logging.Dir != "" {
		log, logErr := logging.NewLogger(cfg.Logging.Dir, logging.NewRunID())
		if logErr != nil {
			out.Warn("logging disabled: %v", logErr)
		} else {
			log.SetMinLevel(logging.Level(cfg.Logging.Level))
			opts = append(opts, engine.WithLogger(log))
			closers = append(closers, func() { log.Close() })
		}
	}
	if os.Getenv("STAGEHAND_TRACE") != "" {
		tp, traceErr := telemetry.NewTracerProvider("stagehand", version)
		if traceErr != nil {
			out.Warn("tracing disabled: %v", traceErr)
		} else {
			closers = append(closers, func() { tp.Shutdown(context.Background()) })
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	eng, err := engine.New(wd, cfg, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}
