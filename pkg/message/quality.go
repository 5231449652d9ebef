package message

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Quality flags are advisory only; they never block a commit.

var placeholderWords = regexp.MustCompile(`(?i)\b(wip|tmp|temp|todo|fixme|asdf|xxx)\b`)

var pastTenseOpeners = regexp.MustCompile(`(?i)^(\w+\([^)]*\):\s*|\w+:\s*)?(added|fixed|changed|updated|removed|refactored|implemented)\b`)

// CheckQuality inspects a finished message and returns human-readable
// advisory flags, empty when the message looks fine.
func CheckQuality(msg string, maxSubject int) []string {
	var flags []string

	subject, _, _ := strings.Cut(msg, "\n")
	subject = strings.TrimSpace(subject)

	if len(subject) < 10 {
		flags = append(flags, "subject is very short; consider describing the change")
	}
	if maxSubject > 0 && len(subject) > maxSubject {
		flags = append(flags, fmt.Sprintf("subject exceeds %d characters", maxSubject))
	}
	if placeholderWords.MatchString(subject) {
		flags = append(flags, "subject contains a placeholder word (wip/tmp/todo)")
	}
	if pastTenseOpeners.MatchString(subject) {
		flags = append(flags, "subject uses past tense; imperative mood reads better")
	}
	if strings.HasSuffix(subject, ".") {
		flags = append(flags, "subject ends with a period")
	}
	if isAllCaps(subject) {
		flags = append(flags, "subject is all uppercase")
	}
	return flags
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters >= 3
}
