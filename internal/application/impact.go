package application

import (
	"regexp"
	"strings"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// Changelog marker prefixes, matched case-insensitively after list bullets
// and heading markers are stripped. A line can land in more than one
// category when it carries more than one marker.
var (
	breakingPrefixes  = []string{"breaking change:", "breaking:", "[breaking]", "⚠️", "⚠"}
	migrationPrefixes = []string{"action required:", "migration:", "required:", "run:", "[migration]"}
	securityPrefixes  = []string{"security:", "[security]", "vulnerability:", "\U0001f512"}
)

var (
	cvePattern = regexp.MustCompile(`(?i)\bCVE-\d{4}-\d{4,}\b`)
	// "name: 1.2 → 1.3" or "name: 1.2 -> 1.3"
	depArrowPattern = regexp.MustCompile(`^([A-Za-z0-9_.@][\w.@/-]*):\s+(v?\d[\w.+-]*)\s*(?:→|->)\s*(v?\d[\w.+-]*)$`)
	// "name 1.2 to 1.3"; operands must look like versions so prose
	// containing the word "to" is not misread as a dependency bump.
	depToPattern = regexp.MustCompile(`^([A-Za-z0-9_.@][\w.@/-]*)\s+(v?\d[\w.+-]*)\s+to\s+(v?\d[\w.+-]*)$`)
)

// AnalyzeChangelog extracts structured impact signals from release notes.
// It is pure and deterministic: the same changelog always yields the same
// report, with entries in changelog line order. Unrecognized lines are
// ignored rather than guessed at.
func AnalyzeChangelog(changelog string, current, latest model.Version) model.ImpactReport {
	report := model.ImpactReport{
		BreakingChanges:   []string{},
		Migrations:        []string{},
		DependencyUpdates: []model.DependencyUpdate{},
		SecurityFixes:     []string{},
	}

	depIndex := map[string]int{}

	for _, raw := range strings.Split(changelog, "\n") {
		line := stripLineDecoration(raw)
		if line == "" {
			continue
		}

		if rest, ok := matchPrefix(line, breakingPrefixes); ok {
			report.BreakingChanges = append(report.BreakingChanges, rest)
		}
		if rest, ok := matchPrefix(line, migrationPrefixes); ok {
			report.Migrations = append(report.Migrations, rest)
		}
		if rest, ok := matchPrefix(line, securityPrefixes); ok {
			report.SecurityFixes = append(report.SecurityFixes, rest)
		} else if cvePattern.MatchString(line) {
			report.SecurityFixes = append(report.SecurityFixes, line)
		}

		if dep, ok := matchDependency(line); ok {
			if i, seen := depIndex[dep.Name]; seen {
				// Conflicting duplicate: the later line wins, order of
				// first appearance is kept.
				report.DependencyUpdates[i] = dep
			} else {
				depIndex[dep.Name] = len(report.DependencyUpdates)
				report.DependencyUpdates = append(report.DependencyUpdates, dep)
			}
		}
	}

	if len(report.BreakingChanges) > 0 {
		report.Severity = model.SeverityBreaking
	} else {
		report.Severity = model.DeltaSeverity(current, latest)
	}
	return report
}

// stripLineDecoration removes leading whitespace, Markdown list bullets,
// blockquote arrows, and heading markers so markers match regardless of
// changelog formatting.
func stripLineDecoration(raw string) string {
	line := strings.TrimSpace(raw)
	for {
		trimmed := strings.TrimLeft(line, "-*+>#")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == line {
			return line
		}
		line = trimmed
	}
}

// matchPrefix reports whether the line starts with any of the markers,
// case-insensitively, and returns the text after the marker. An empty
// remainder falls back to the whole line so a bare marker is not lost.
func matchPrefix(line string, prefixes []string) (string, bool) {
	lower := strings.ToLower(line)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			rest := strings.TrimSpace(line[len(p):])
			if rest == "" {
				rest = line
			}
			return rest, true
		}
	}
	return "", false
}

func matchDependency(line string) (model.DependencyUpdate, bool) {
	if m := depArrowPattern.FindStringSubmatch(line); m != nil {
		return model.DependencyUpdate{Name: m[1], From: m[2], To: m[3]}, true
	}
	if m := depToPattern.FindStringSubmatch(line); m != nil {
		return model.DependencyUpdate{Name: m[1], From: m[2], To: m[3]}, true
	}
	return model.DependencyUpdate{}, false
}
