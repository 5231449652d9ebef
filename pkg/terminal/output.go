// Package terminal provides styled CLI output. No TUI framework, just
// lipgloss-colored prints.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Writer provides styled terminal output.
type Writer struct {
	out io.Writer
	mu  sync.Mutex

	errorStyle   lipgloss.Style
	warnStyle    lipgloss.Style
	successStyle lipgloss.Style
	infoStyle    lipgloss.Style
	dimStyle     lipgloss.Style
	headerStyle  lipgloss.Style
	subjectStyle lipgloss.Style
}

// New creates a Writer on stdout.
func New() *Writer {
	return NewWithOutput(os.Stdout)
}

// NewWithOutput creates a Writer with a custom output destination.
func NewWithOutput(out io.Writer) *Writer {
	return &Writer{
		out: out,

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).
			Bold(true),

		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"}),

		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}),

		infoStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),

		headerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"}).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}),

		subjectStyle: lipgloss.NewStyle().Bold(true),
	}
}

// Print writes text to the terminal.
func (w *Writer) Print(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}

// Println writes text with a newline.
func (w *Writer) Println(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Error prints an error message in red.
func (w *Writer) Error(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.out, w.errorStyle.Render("error: "+msg))
}

// Warn prints a warning message in yellow.
func (w *Writer) Warn(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.out, w.warnStyle.Render("warning: "+msg))
}

// Success prints a success message in green.
func (w *Writer) Success(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.out, w.successStyle.Render("✓ "+msg))
}

// Info prints an info message in blue.
func (w *Writer) Info(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.out, w.infoStyle.Render(msg))
}

// Dim prints dimmed/secondary text.
func (w *Writer) Dim(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.out, w.dimStyle.Render(msg))
}

// Header prints a section header.
func (w *Writer) Header(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, w.headerStyle.Render(title))
}

// List prints an indented bullet list in dim style.
func (w *Writer) List(items []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, item := range items {
		fmt.Fprintln(w.out, w.dimStyle.Render("  - "+item))
	}
}

// CommitMessage prints a commit message with the subject emphasized.
func (w *Writer) CommitMessage(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	subject, body, hasBody := strings.Cut(msg, "\n")
	fmt.Fprintln(w.out, w.subjectStyle.Render(subject))
	if hasBody {
		fmt.Fprintln(w.out, w.dimStyle.Render(strings.TrimLeft(body, "\n")))
	}
}

// Newline prints a blank line.
func (w *Writer) Newline() {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out)
}
