// Package validate inspects the staged set before a commit is
// attempted. Oversized files block the commit; everything else is
// advisory and reported as warnings.
package validate

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/odvcencio/stagehand/pkg/config"
	"github.com/odvcencio/stagehand/pkg/logging"
	"github.com/odvcencio/stagehand/pkg/telemetry"
)

// ErrBlocked marks a report whose blocking findings must stop the
// commit.
var ErrBlocked = errors.New("validation blocked the commit")

// Issue is one validation finding tied to a staged path.
type Issue struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Path, i.Message, i.Category)
}

// Report separates findings that must stop the commit from advisory
// ones.
type Report struct {
	Blocking []Issue
	Warnings []Issue
}

// Clean reports whether nothing at all was flagged.
func (r Report) Clean() bool {
	return len(r.Blocking) == 0 && len(r.Warnings) == 0
}

// Validator runs the configured checks against staged paths.
type Validator struct {
	root string
	cfg  config.ValidationConfig
	log  *logging.Logger
	sink telemetry.Sink
}

// NewValidator builds a validator rooted at the repository root.
func NewValidator(root string, cfg config.ValidationConfig, log *logging.Logger, sink telemetry.Sink) *Validator {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Validator{root: root, cfg: cfg, log: log, sink: sink}
}

// Validate checks every staged path. Deleted files, whose content is
// gone from the worktree, are skipped.
func (v *Validator) Validate(stagedPaths []string) Report {
	var report Report

	for _, p := range stagedPaths {
		abs := filepath.Join(v.root, filepath.FromSlash(p))
		info, err := os.Stat(abs)
		if err != nil {
			continue
		}

		switch {
		case info.Size() > v.cfg.LargeFileLimit:
			report.Blocking = append(report.Blocking, Issue{
				Path:     p,
				Category: "size",
				Message: fmt.Sprintf("file is %s, over the %s commit limit",
					humanSize(info.Size()), humanSize(v.cfg.LargeFileLimit)),
			})
			continue
		case info.Size() > v.cfg.WarnFileLimit:
			report.Warnings = append(report.Warnings, Issue{
				Path:     p,
				Category: "size",
				Message:  fmt.Sprintf("file is %s, larger than usual", humanSize(info.Size())),
			})
		}

		if v.cfg.FilenameChecks {
			if issue, ok := checkFilename(p); ok {
				report.Warnings = append(report.Warnings, issue)
				continue
			}
		}

		if v.cfg.ScanSecrets && looksScannable(p) {
			if issue, ok := scanForSecrets(abs, p); ok {
				report.Warnings = append(report.Warnings, issue)
			}
		}
		if v.cfg.ScanDebug && looksScannable(p) {
			if issue, ok := scanForDebugStatements(abs, p); ok {
				report.Warnings = append(report.Warnings, issue)
			}
		}
	}

	if len(report.Blocking) > 0 {
		v.sink.Incr(telemetry.MetricCommitsBlocked, 1)
	}
	v.log.Info(logging.CategoryValidate, "validate_done",
		fmt.Sprintf("%d blocking, %d warnings over %d files",
			len(report.Blocking), len(report.Warnings), len(stagedPaths)), nil)
	return report
}

// secretFilenames are exact base names that usually hold credentials.
var secretFilenames = map[string]bool{
	".env": true, ".env.local": true, ".env.development": true,
	".env.production": true, ".env.test": true, ".envrc": true,
	"credentials.json": true, "credentials.yaml": true, "credentials.yml": true,
	"secrets.json": true, "secrets.yaml": true, "secrets.yml": true,
	".secrets": true, ".htpasswd": true, ".netrc": true,
	"id_rsa": true, "id_ed25519": true, "id_ecdsa": true, "id_dsa": true,
	"service-account.json": true, "kubeconfig": true,
}

var secretExtensions = map[string]bool{
	".pem": true, ".key": true, ".p12": true, ".pfx": true,
}

var artifactDirs = []string{
	"dist/", "build/", "out/", "target/", "node_modules/",
	"__pycache__/", ".pytest_cache/", ".next/",
}

var artifactExtensions = map[string]bool{
	".o": true, ".a": true, ".class": true, ".pyc": true, ".pyo": true,
}

var mediaExtensions = map[string]bool{
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".7z": true,
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".mp3": true, ".wav": true, ".flac": true,
	".psd": true, ".sketch": true, ".sqlite": true, ".db": true,
}

// checkFilename flags paths whose name alone suggests they should not
// be committed.
func checkFilename(p string) (Issue, bool) {
	slashed := filepath.ToSlash(p)
	base := filepath.Base(slashed)
	ext := strings.ToLower(filepath.Ext(base))

	if secretFilenames[base] || secretExtensions[ext] {
		return Issue{Path: p, Category: "secrets", Message: "filename suggests credentials or a private key"}, true
	}
	for _, dir := range artifactDirs {
		if strings.HasPrefix(slashed, dir) || strings.Contains(slashed, "/"+dir) {
			return Issue{Path: p, Category: "artifact", Message: "path looks like build output or vendored dependencies"}, true
		}
	}
	if artifactExtensions[ext] {
		return Issue{Path: p, Category: "artifact", Message: "file looks like a compiled artifact"}, true
	}
	if mediaExtensions[ext] {
		return Issue{Path: p, Category: "binary", Message: "binary or media file, consider Git LFS"}, true
	}
	return Issue{}, false
}

var scannableExtensions = map[string]bool{
	".go": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".py": true, ".rb": true, ".php": true, ".java": true, ".kt": true,
	".rs": true, ".c": true, ".h": true, ".cpp": true, ".cc": true,
	".sh": true, ".bash": true, ".zsh": true,
	".yaml": true, ".yml": true, ".toml": true, ".json": true,
	".ini": true, ".cfg": true, ".conf": true, ".env": true,
	".txt": true, ".md": true,
}

func looksScannable(p string) bool {
	return scannableExtensions[strings.ToLower(filepath.Ext(p))]
}

var secretAssignment = regexp.MustCompile(
	`(?i)(password|passwd|api[_-]?key|secret|token|private[_-]?key)\s*[:=]\s*['"]?[^\s'"]{4,}`)

// scanForSecrets looks for credential-shaped assignments in file
// content. Findings are warnings, never blocking, since heuristics of
// this kind misfire on test fixtures and examples.
func scanForSecrets(abs, p string) (Issue, bool) {
	n, ok := scanLines(abs, func(line string) bool {
		return secretAssignment.MatchString(line)
	})
	if !ok {
		return Issue{}, false
	}
	return Issue{
		Path:     p,
		Category: "secrets",
		Message:  fmt.Sprintf("line %d looks like a hardcoded credential", n),
	}, true
}

var debugPatterns = []string{
	"debugger;",
	"console.log(",
	"pdb.set_trace(",
	"breakpoint()",
	"binding.pry",
	"var_dump(",
	"dd(",
}

func scanForDebugStatements(abs, p string) (Issue, bool) {
	n, ok := scanLines(abs, func(line string) bool {
		trimmed := strings.TrimSpace(line)
		for _, pat := range debugPatterns {
			if strings.HasPrefix(trimmed, pat) {
				return true
			}
		}
		return false
	})
	if !ok {
		return Issue{}, false
	}
	return Issue{
		Path:     p,
		Category: "debug",
		Message:  fmt.Sprintf("line %d looks like a leftover debug statement", n),
	}, true
}

// scanLines runs match over each line and returns the first hit's
// line number.
func scanLines(abs string, match func(string) bool) (int, bool) {
	f, err := os.Open(abs)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		if match(scanner.Text()) {
			return n, true
		}
	}
	return 0, false
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%dB", n)
}
