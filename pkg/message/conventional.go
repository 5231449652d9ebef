package message

import (
	"regexp"
	"strings"
	"unicode"
)

// conventionalRe matches an already-conventional subject, case
// insensitively, so an upstream capitalize pass cannot break the
// format.
var conventionalRe = regexp.MustCompile(
	`^(?i)(feat|feature|fix|docs|style|refactor|perf|test|build|ci|chore|revert)(\([^)]+\))?(!)?:\s*(.*)$`)

// typeAliases maps taxonomy and prose names onto conventional types.
var typeAliases = map[string]string{
	"feature": "feat",
}

// inference pairs a prose pattern with the conventional type it
// implies. Checked in order, first match wins.
var inference = []struct {
	re     *regexp.Regexp
	commit string
}{
	{regexp.MustCompile(`(?i)\b(fix|fixes|fixed|bug|patch)\b`), "fix"},
	{regexp.MustCompile(`(?i)\b(add|adds|added|implement|introduce|feature)\b`), "feat"},
	{regexp.MustCompile(`(?i)\b(doc|docs|readme|changelog|document)\b`), "docs"},
	{regexp.MustCompile(`(?i)\b(test|tests|spec|coverage)\b`), "test"},
	{regexp.MustCompile(`(?i)\b(refactor|restructure|rework|cleanup)\b`), "refactor"},
	{regexp.MustCompile(`(?i)\b(format|style|lint)\b`), "style"},
	{regexp.MustCompile(`(?i)\b(performance|perf|optimi[sz]e|speed)\b`), "perf"},
}

// ToConventional rewrites the subject into conventional-commit form.
// A subject that already has a conventional prefix is normalized (type
// lowercased) and returned; otherwise a type is inferred from the
// prose and prefixed, with the optional scope.
func ToConventional(subject, scope string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return subject
	}

	if m := conventionalRe.FindStringSubmatch(subject); m != nil {
		typ := strings.ToLower(m[1])
		if alias, ok := typeAliases[typ]; ok {
			typ = alias
		}
		return typ + m[2] + m[3] + ": " + m[4]
	}

	typ := "chore"
	for _, inf := range inference {
		if inf.re.MatchString(subject) {
			typ = inf.commit
			break
		}
	}

	desc := lowercaseFirst(subject)
	if scope != "" {
		return typ + "(" + scope + "): " + desc
	}
	return typ + ": " + desc
}

func lowercaseFirst(s string) string {
	for i, r := range s {
		if i > 0 {
			break
		}
		if unicode.IsUpper(r) {
			return string(unicode.ToLower(r)) + s[len(string(r)):]
		}
	}
	return s
}
