package message

import (
	"strings"
	"testing"

	"github.com/odvcencio/stagehand/pkg/analyze"
	"github.com/odvcencio/stagehand/pkg/config"
	"github.com/odvcencio/stagehand/pkg/gitx"
)

func TestBuildTemplate(t *testing.T) {
	a := analyze.Analysis{Type: "feature", Keywords: []string{"auth", "login"}}

	got := Build(a, "api", "{type}({scope}): update {keywords}")
	if got != "feature(api): update auth, login" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildWithoutScope(t *testing.T) {
	a := analyze.Analysis{Type: "fix", Keywords: []string{"parser"}}

	got := Build(a, "", "")
	if got != "fix: update parser" {
		t.Fatalf("scope group should vanish when empty: %q", got)
	}
}

func TestBuildEmptyKeywordsFallBack(t *testing.T) {
	got := Build(analyze.Analysis{Type: "misc"}, "", "{type}: update {keywords}")
	if got != "misc: update files" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildStripsUnknownPlaceholders(t *testing.T) {
	got := Build(analyze.Analysis{Type: "docs"}, "", "{type}: {mystery} update {keywords}")
	if strings.Contains(got, "{") || strings.Contains(got, "}") {
		t.Fatalf("unresolved placeholder survived: %q", got)
	}
}

func defaultMessageConfig() config.MessageConfig {
	return config.DefaultConfig().Message
}

func TestOptimizeCapitalizesAndStripsPeriod(t *testing.T) {
	cfg := defaultMessageConfig()
	cfg.PrependScope = false

	got := Optimize("add retry logic.", cfg, "")
	if got != "Add retry logic" {
		t.Fatalf("got %q", got)
	}
}

func TestOptimizeTruncationContract(t *testing.T) {
	cfg := defaultMessageConfig()
	cfg.PrependScope = false
	cfg.MaxSubjectLength = 40

	long := "rework the streaming decoder so that partial frames are buffered correctly"
	got := Optimize(long, cfg, "")

	if len(got) > 40 {
		t.Fatalf("subject length %d exceeds limit 40: %q", len(got), got)
	}
	if !strings.HasSuffix(got, Ellipsis) {
		t.Fatalf("truncated subject must end with %q: %q", Ellipsis, got)
	}
	if strings.HasSuffix(strings.TrimSuffix(got, Ellipsis), " ") {
		t.Fatalf("trailing space before ellipsis: %q", got)
	}
}

func TestOptimizeTruncatesAtWordBoundary(t *testing.T) {
	cfg := defaultMessageConfig()
	cfg.PrependScope = false
	cfg.MaxSubjectLength = 30

	got := Optimize("update dependency manifests everywhere", cfg, "")
	trimmed := strings.TrimSuffix(got, Ellipsis)
	if strings.HasSuffix(trimmed, "every") || strings.HasSuffix(trimmed, "everyw") {
		t.Fatalf("word cut mid-token: %q", got)
	}
}

func TestOptimizeShortSubjectUntouchedByTruncate(t *testing.T) {
	cfg := defaultMessageConfig()
	cfg.PrependScope = false

	got := Optimize("Fix typo", cfg, "")
	if strings.Contains(got, Ellipsis) {
		t.Fatalf("short subject must not be truncated: %q", got)
	}
}

func TestOptimizePrependsScopeOnce(t *testing.T) {
	cfg := defaultMessageConfig()

	got := Optimize("handle nil receiver", cfg, "parser")
	if !strings.HasPrefix(got, "parser: ") {
		t.Fatalf("scope not prepended: %q", got)
	}

	again := Optimize(got, cfg, "parser")
	if strings.Count(strings.ToLower(again), "parser:") != 1 {
		t.Fatalf("scope prepending must be idempotent: %q", again)
	}
}

func TestOptimizeSkipsScopeOnConventionalPrefix(t *testing.T) {
	cfg := defaultMessageConfig()

	got := Optimize("fix(parser): handle nil receiver", cfg, "parser")
	if strings.HasPrefix(got, "parser: ") {
		t.Fatalf("scope stacked on conventional prefix: %q", got)
	}
}

func TestOptimizeLeavesBodyAlone(t *testing.T) {
	cfg := defaultMessageConfig()
	cfg.PrependScope = false

	body := "- a.go\n- b.go."
	got := Optimize("do the thing.\n"+body, cfg, "")
	if !strings.HasSuffix(got, body) {
		t.Fatalf("body was modified: %q", got)
	}
}

func TestToConventionalNormalizesExistingPrefix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Docs(docs): update notes", "docs(docs): update notes"},
		{"FIX: null deref", "fix: null deref"},
		{"feat(api)!: drop v1 routes", "feat(api)!: drop v1 routes"},
		{"Feature(auth): add login", "feat(auth): add login"},
	}
	for _, tt := range tests {
		if got := ToConventional(tt.in, ""); got != tt.want {
			t.Fatalf("ToConventional(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToConventionalInfersType(t *testing.T) {
	tests := []struct{ in, scope, want string }{
		{"Add retry to the uploader", "net", "feat(net): add retry to the uploader"},
		{"Fixed the race in the watcher", "", "fix: fixed the race in the watcher"},
		{"Update readme badges", "", "docs: update readme badges"},
		{"Bump copyright year", "", "chore: bump copyright year"},
	}
	for _, tt := range tests {
		if got := ToConventional(tt.in, tt.scope); got != tt.want {
			t.Fatalf("ToConventional(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCheckQualityFlags(t *testing.T) {
	flags := CheckQuality("wip", 72)
	if len(flags) == 0 {
		t.Fatal("expected flags for a wip stub")
	}

	flags = CheckQuality("Added stuff.", 72)
	joined := strings.Join(flags, "; ")
	if !strings.Contains(joined, "past tense") || !strings.Contains(joined, "period") {
		t.Fatalf("missing expected flags: %v", flags)
	}

	if flags := CheckQuality("Rework decoder buffering for partial frames", 72); len(flags) != 0 {
		t.Fatalf("clean subject should not be flagged: %v", flags)
	}
}

func TestBuildBody(t *testing.T) {
	staged := []string{"a.go", "b.go"}
	stats := gitx.DiffStats{Files: 2, Insertions: 10, Deletions: 3}

	body := BuildBody(staged, stats)
	if !strings.Contains(body, "- a.go") || !strings.Contains(body, "- b.go") {
		t.Fatalf("missing file bullets: %q", body)
	}
	if !strings.Contains(body, "2 files changed, +10 -3") {
		t.Fatalf("missing stats line: %q", body)
	}
}

func TestBuildBodyCapsFileList(t *testing.T) {
	staged := make([]string, 14)
	for i := range staged {
		staged[i] = "f.go"
	}
	body := BuildBody(staged, gitx.DiffStats{})
	if !strings.Contains(body, "...and 4 more") {
		t.Fatalf("overflow marker missing: %q", body)
	}
}

func TestCompose(t *testing.T) {
	if got := Compose("subject", ""); got != "subject" {
		t.Fatalf("got %q", got)
	}
	if got := Compose("subject", "body"); got != "subject\n\nbody" {
		t.Fatalf("got %q", got)
	}
}
