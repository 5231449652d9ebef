package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"

	"github.com/odvcencio/stagehand/pkg/engine"
	"github.com/odvcencio/stagehand/pkg/terminal"
)

func runCommit(ctx context.Context, out *terminal.Writer, args []string) int {
	fs := flag.NewFlagSet("commit", flag.ContinueOnError)
	msgFlag := fs.String("message", "", "use this message instead of synthesizing one")
	template := fs.String("template", "", "override the configured message template")
	dryRun := fs.Bool("dry-run", false, "prepare and validate but do not commit")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	amend := fs.Bool("amend", false, "amend the previous commit")
	allowEmpty := fs.Bool("allow-empty", false, "permit a commit with nothing staged")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	eng, cleanup, err := newEngine(out)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	defer cleanup()

	// First pass is always a dry run so the message and validation
	// findings can be shown before anything is written.
	res, err := eng.Commit(ctx, engine.CommitRequest{
		Message:    *msgFlag,
		Template:   *template,
		DryRun:     true,
		AllowEmpty: *allowEmpty,
		Amend:      *amend,
	})
	if err != nil {
		out.Error("%v", err)
		if res != nil {
			for _, issue := range res.Validation.Blocking {
				out.Error("%s", issue)
			}
		}
		return 1
	}

	for _, issue := range res.Validation.Warnings {
		out.Warn("%s", issue)
	}
	for _, q := range res.Quality {
		out.Dim("note: %s", q)
	}

	out.Header("commit message")
	out.CommitMessage(res.Message)
	out.Newline()

	if *dryRun {
		out.Dim("dry run, nothing committed")
		return 0
	}

	finalMsg := res.Message
	if !*yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			out.Error("refusing to commit without confirmation; pass --yes in non-interactive use")
			return 1
		}
		edited, ok := confirmCommit(out, finalMsg)
		if !ok {
			out.Dim("aborted")
			return 1
		}
		if edited != "" {
			finalMsg = edited
		}
	}

	final, err := eng.Commit(ctx, engine.CommitRequest{
		Message:    finalMsg,
		DryRun:     false,
		AllowEmpty: *allowEmpty,
		Amend:      *amend,
	})
	if err != nil {
		out.Error("%v", err)
		return 1
	}

	for _, adv := range final.Advisories {
		out.Warn("%s", adv)
	}
	out.Success("committed %s", final.Hash)
	return 0
}

// confirmCommit prompts for [y] commit, [e] edit, [n] abort. It
// returns ok=false on abort and the edited message when editing
// changed it.
func confirmCommit(out *terminal.Writer, message string) (edited string, ok bool) {
	reader := bufio.NewReader(os.Stdin)
	for {
		out.Print("[y] Commit  [e] Edit  [n] Abort: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", false
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return "", true
		case "e", "edit":
			next, editErr := editInEditor(message)
			if editErr != nil {
				out.Error("edit failed: %v", editErr)
				continue
			}
			if strings.TrimSpace(next) == "" {
				out.Error("empty message, keeping original")
				continue
			}
			return next, true
		case "n", "no", "q", "quit":
			return "", false
		default:
			out.Dim("unknown option %q", strings.TrimSpace(line))
		}
	}
}

// editInEditor opens the message in $EDITOR for editing.
func editInEditor(message string) (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	tmp, err := os.CreateTemp("", "stagehand-edit-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(message); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command(editor, tmpPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor failed: %w", err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("read edited message: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
