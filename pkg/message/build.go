// Package message synthesizes and formats commit messages from change
// analysis: template substitution, an optimization pipeline, optional
// conventional-commit reformatting, and an advisory quality check.
package message

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/odvcencio/stagehand/pkg/analyze"
	"github.com/odvcencio/stagehand/pkg/gitx"
)

// DefaultTemplate is used when the caller supplies none.
const DefaultTemplate = "{type}({scope}): update {keywords}"

// Ellipsis marks a truncated subject.
const Ellipsis = "..."

var placeholderRe = regexp.MustCompile(`\{[a-z_]+\}`)

// Build fills the template from the analysis. An absent scope removes
// the whole "(scope)" group; absent keywords default to "files";
// any unresolved placeholders are stripped.
func Build(a analyze.Analysis, scope, template string) string {
	if template == "" {
		template = DefaultTemplate
	}

	out := template
	out = strings.ReplaceAll(out, "{type}", a.Type)

	if scope != "" {
		out = strings.ReplaceAll(out, "{scope}", scope)
	} else {
		out = strings.ReplaceAll(out, "({scope})", "")
	}

	keywords := strings.Join(a.Keywords, ", ")
	if keywords == "" {
		keywords = "files"
	}
	out = strings.ReplaceAll(out, "{keywords}", keywords)

	out = placeholderRe.ReplaceAllString(out, "")
	out = strings.Join(strings.Fields(out), " ")
	return out
}

// BuildBody writes a short change summary under the subject: one
// bullet per staged file (capped) plus diff statistics when available.
func BuildBody(staged []string, stats gitx.DiffStats) string {
	if len(staged) == 0 {
		return ""
	}

	const maxListed = 10
	var b strings.Builder
	for i, path := range staged {
		if i == maxListed {
			b.WriteString("- ...and ")
			b.WriteString(strconv.Itoa(len(staged) - maxListed))
			b.WriteString(" more\n")
			break
		}
		b.WriteString("- ")
		b.WriteString(path)
		b.WriteString("\n")
	}

	if stats.TotalChanges() > 0 {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(stats.Files))
		b.WriteString(" files changed, +")
		b.WriteString(strconv.Itoa(stats.Insertions))
		b.WriteString(" -")
		b.WriteString(strconv.Itoa(stats.Deletions))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Compose joins subject and body with the blank separator line.
func Compose(subject, body string) string {
	if body == "" {
		return subject
	}
	return subject + "\n\n" + body
}
