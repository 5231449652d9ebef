package main

import (
	"context"
	"flag"
	"strings"

	"github.com/odvcencio/stagehand/pkg/terminal"
)

func runAnalyze(ctx context.Context, out *terminal.Writer, args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	template := fs.String("template", "", "override the configured message template")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	eng, cleanup, err := newEngine(out)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	defer cleanup()

	msg, analysis, err := eng.PrepareMessage(*template)
	if err != nil {
		out.Error("%v", err)
		return 1
	}

	out.Header("staged change analysis")
	out.Println("type:       %s", analysis.Type)
	out.Println("confidence: %.2f", analysis.Confidence)
	if analysis.Scope != "" {
		out.Println("scope:      %s", analysis.Scope)
	}
	if len(analysis.Keywords) > 0 {
		out.Println("keywords:   %s", strings.Join(analysis.Keywords, ", "))
	}
	out.Newline()
	out.Header("proposed message")
	out.CommitMessage(msg)
	return 0
}
