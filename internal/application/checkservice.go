// Package application contains the use-case services: release fetching with
// cache degradation, changelog impact analysis, dismissal tracking, update
// execution with rollback, and the orchestrating check service.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
	"github.com/ericfisherdev/upkeep/internal/domain/port/driven"
)

// VersionOrdering selects how two versions are compared during a check.
type VersionOrdering string

const (
	// OrderingNumeric compares the numeric triple only; suffixes are
	// ignored. This is the default.
	OrderingNumeric VersionOrdering = "numeric"
	// OrderingSemver applies full semver precedence, so a pre-release
	// counts as older than its release.
	OrderingSemver VersionOrdering = "semver"
)

// CheckReport is the structured outcome of one update check. A degraded
// check (release source down, no cache) is still a valid report with
// UpdateAvailable=false and Warning set; Check never fails outright.
type CheckReport struct {
	UpdateAvailable bool
	Current         model.Version
	Latest          *model.Release
	Dismissed       bool
	Impact          *model.ImpactReport
	Notification    string
	// Stale marks release info served from an expired cache entry after a
	// remote failure.
	Stale   bool
	Warning string
}

// CheckService composes fetching, comparison, impact analysis, and dismissal
// state into update-check reports, and drives the executor on request.
type CheckService struct {
	fetch      *FetchService
	dismissals driven.DismissalStore
	executor   *UpdateService
	current    model.Version
	ordering   VersionOrdering
	now        func() time.Time
}

// NewCheckService creates a CheckService. executor may be nil when the
// wiring is check-only; CheckAndExecute then reports a failed execution.
func NewCheckService(
	fetch *FetchService,
	dismissals driven.DismissalStore,
	executor *UpdateService,
	current model.Version,
	ordering VersionOrdering,
) *CheckService {
	if ordering == "" {
		ordering = OrderingNumeric
	}
	return &CheckService{
		fetch:      fetch,
		dismissals: dismissals,
		executor:   executor,
		current:    current,
		ordering:   ordering,
		now:        time.Now,
	}
}

// Current returns the version the service considers installed.
func (s *CheckService) Current() model.Version {
	return s.current
}

// Check performs one update check. Collaborator failures degrade into
// report fields instead of errors so a broken network or state file never
// blocks the caller.
func (s *CheckService) Check(ctx context.Context, forceRefresh bool) CheckReport {
	report := CheckReport{Current: s.current}

	release, freshness, err := s.fetch.Latest(ctx, forceRefresh)
	if err != nil {
		slog.Warn("update check degraded", "error", err)
		report.Warning = fmt.Sprintf("update check unavailable: %v", err)
		return report
	}
	report.Latest = &release
	report.Stale = freshness == FetchStale

	// Dismissals for anything below the latest release are superseded and
	// will never notify again; drop them.
	if err := s.dismissals.DeleteOlderThan(ctx, release.Version); err != nil {
		slog.Warn("pruning superseded dismissals failed", "error", err)
	}

	if s.compare(release.Version, s.current) <= 0 {
		slog.Debug("toolkit up to date", "current", s.current, "latest", release.Version)
		return report
	}
	report.UpdateAvailable = true

	impact := AnalyzeChangelog(release.Changelog, s.current, release.Version)
	report.Impact = &impact

	dismissal, err := s.dismissals.Get(ctx, release.Version)
	if err != nil {
		slog.Warn("dismissal state unreadable, treating as not dismissed", "error", err)
		report.Warning = fmt.Sprintf("dismissal state unreadable: %v", err)
	}
	report.Dismissed = dismissal != nil

	if !report.Dismissed {
		report.Notification = renderNotification(report)
	}

	slog.Info("update check complete",
		"current", s.current,
		"latest", release.Version,
		"available", report.UpdateAvailable,
		"dismissed", report.Dismissed,
		"severity", impact.Severity)
	return report
}

// CheckAndExecute runs Check and, when an update is available and not
// dismissed, applies it. The returned UpdateResult is nil when nothing was
// attempted (dismissed or degraded); outcome no_update means the check found
// nothing newer. The error is non-nil only for the executor's unrecoverable
// rollback failure.
func (s *CheckService) CheckAndExecute(ctx context.Context, forceRefresh bool) (CheckReport, *model.UpdateResult, error) {
	report := s.Check(ctx, forceRefresh)

	if !report.UpdateAvailable {
		if report.Warning != "" {
			return report, nil, nil
		}
		result := model.UpdateResult{Outcome: model.UpdateOutcomeNoUpdate, Version: s.current}
		return report, &result, nil
	}
	if report.Dismissed {
		slog.Info("update dismissed, not executing", "version", report.Latest.Version)
		return report, nil, nil
	}
	if s.executor == nil {
		result := model.UpdateResult{
			Outcome: model.UpdateOutcomeFailed,
			Version: report.Latest.Version,
			Error:   "no update executor configured",
		}
		return report, &result, nil
	}

	result, err := s.executor.Execute(ctx, *report.Latest)
	return report, &result, err
}

// IsDismissed reports whether exactly this version has been dismissed.
func (s *CheckService) IsDismissed(ctx context.Context, version model.Version) (bool, error) {
	record, err := s.dismissals.Get(ctx, version)
	if err != nil {
		return false, fmt.Errorf("load dismissal for %s: %w", version, err)
	}
	return record != nil, nil
}

// Dismiss records that the user wants no further notifications for this
// version. Repeat dismissals bump the counter and refresh the timestamp.
func (s *CheckService) Dismiss(ctx context.Context, version model.Version) (model.Dismissal, error) {
	existing, err := s.dismissals.Get(ctx, version)
	if err != nil {
		return model.Dismissal{}, fmt.Errorf("load dismissal for %s: %w", version, err)
	}

	record := model.Dismissal{Version: version, DismissedAt: s.now(), CheckCount: 1}
	if existing != nil {
		record.CheckCount = existing.CheckCount + 1
	}
	if err := s.dismissals.Upsert(ctx, record); err != nil {
		return model.Dismissal{}, fmt.Errorf("persist dismissal for %s: %w", version, err)
	}
	slog.Info("version dismissed", "version", version, "check_count", record.CheckCount)
	return record, nil
}

// ClearDismissal removes the record for one version.
func (s *CheckService) ClearDismissal(ctx context.Context, version model.Version) error {
	if err := s.dismissals.Delete(ctx, version); err != nil {
		return fmt.Errorf("clear dismissal for %s: %w", version, err)
	}
	return nil
}

// ClearAllDismissals removes every dismissal record.
func (s *CheckService) ClearAllDismissals(ctx context.Context) error {
	if err := s.dismissals.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear dismissals: %w", err)
	}
	return nil
}

// ListDismissals returns all dismissal records ordered by version.
func (s *CheckService) ListDismissals(ctx context.Context) ([]model.Dismissal, error) {
	return s.dismissals.List(ctx)
}

// ClearCache drops the cached release so the next check hits the source.
func (s *CheckService) ClearCache(ctx context.Context) error {
	return s.fetch.ClearCache(ctx)
}

func (s *CheckService) compare(a, b model.Version) int {
	if s.ordering == OrderingSemver {
		return a.ComparePrerelease(b)
	}
	return a.Compare(b)
}

// renderNotification builds the human-readable update banner shown by the
// CLI and the status API.
func renderNotification(report CheckReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Update available: %s -> %s (%s)",
		report.Current, report.Latest.Version, report.Impact.Severity)

	if n := len(report.Impact.BreakingChanges); n > 0 {
		fmt.Fprintf(&b, "\n  %d breaking change(s): review the changelog before updating", n)
	}
	if n := len(report.Impact.Migrations); n > 0 {
		fmt.Fprintf(&b, "\n  %d migration step(s) listed in the release notes", n)
	}
	if n := len(report.Impact.SecurityFixes); n > 0 {
		fmt.Fprintf(&b, "\n  %d security fix(es) included", n)
	}
	if report.Stale {
		b.WriteString("\n  note: release info served from an expired cache, the source was unreachable")
	}
	return b.String()
}
