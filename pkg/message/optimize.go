package message

import (
	"strings"
	"unicode"

	"github.com/odvcencio/stagehand/pkg/config"
)

// Optimize runs the enabled cleanup passes over a raw message. Only the
// first line is touched; any body below it passes through unchanged.
// Passes run in a fixed order: capitalize, strip trailing period,
// truncate, prepend scope.
func Optimize(raw string, cfg config.MessageConfig, scope string) string {
	subject, body, hasBody := strings.Cut(raw, "\n")
	subject = strings.TrimSpace(subject)

	if cfg.Capitalize {
		subject = capitalizeFirst(subject)
	}
	if cfg.StripPeriod {
		subject = strings.TrimSuffix(subject, ".")
	}
	if cfg.Truncate {
		limit := cfg.MaxSubjectLength
		if limit <= 0 {
			limit = config.DefaultMaxSubjectLength
		}
		subject = truncateSubject(subject, limit)
	}
	if cfg.PrependScope && scope != "" && !hasScopePrefix(subject) {
		subject = scope + ": " + subject
	}

	if hasBody {
		return subject + "\n" + body
	}
	return subject
}

func capitalizeFirst(s string) string {
	for i, r := range s {
		if unicode.IsLetter(r) {
			if i == 0 {
				return string(unicode.ToUpper(r)) + s[len(string(r)):]
			}
			return s
		}
		if i > 0 {
			return s
		}
	}
	return s
}

// truncateSubject shortens the subject to at most limit characters
// including the ellipsis. It prefers breaking at the last whitespace
// past 70% of the limit so words are not cut mid-token.
func truncateSubject(subject string, limit int) string {
	if len(subject) <= limit {
		return subject
	}

	cut := limit - len(Ellipsis)
	if cut <= 0 {
		return Ellipsis[:limit]
	}

	truncated := subject[:cut]
	minBreak := limit * 70 / 100
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx >= minBreak {
		truncated = truncated[:idx]
	}
	return strings.TrimRight(truncated, " \t") + Ellipsis
}

// hasScopePrefix reports whether the subject already carries a
// "word: " or "word(scope): " lead, so scope prepending stays
// idempotent and never stacks on a conventional prefix.
func hasScopePrefix(subject string) bool {
	idx := strings.Index(subject, ": ")
	if idx <= 0 {
		return strings.HasSuffix(subject, ":")
	}
	head := subject[:idx]
	for _, r := range head {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '(' && r != ')' && r != '-' && r != '_' && r != '!' {
			return false
		}
	}
	return true
}
