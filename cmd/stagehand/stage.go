package main

import (
	"context"
	"flag"

	"github.com/odvcencio/stagehand/pkg/engine"
	"github.com/odvcencio/stagehand/pkg/terminal"
)

func runStage(ctx context.Context, out *terminal.Writer, args []string) int {
	fs := flag.NewFlagSet("stage", flag.ContinueOnError)
	untracked := fs.Bool("untracked", true, "include untracked files when no patterns are given")
	force := fs.Bool("force", false, "stage files that .gitignore would exclude")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	eng, cleanup, err := newEngine(out)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	defer cleanup()

	result, err := eng.Stage(ctx, engine.StageRequest{
		Patterns:  fs.Args(),
		Untracked: *untracked,
		Force:     *force,
	})
	if err != nil {
		out.Error("%v", err)
		return 1
	}

	for _, w := range result.Warnings {
		out.Warn("%s", w)
	}

	if len(result.Staged) == 0 && len(result.Errors) == 0 {
		out.Dim("nothing to stage")
		return 0
	}

	out.Success("staged %d files (%s strategy)", len(result.Staged), result.Strategy.Type)
	for _, e := range result.Errors {
		out.Error("%s", e)
	}
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}
