// Package cli renders check and update outcomes as a terminal report or as
// machine-readable JSON. Both views are built from the same Report value so
// the two outputs can never disagree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ericfisherdev/upkeep/internal/application"
	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// Report is the full document: the check outcome, the update attempt when
// one was made, and the current dismissal records when requested.
type Report struct {
	Status     StatusReport    `json:"status"`
	Update     *UpdateReport   `json:"update,omitempty"`
	Dismissals []DismissalInfo `json:"dismissals,omitempty"`
}

// StatusReport is the JSON representation of one update check.
type StatusReport struct {
	UpdateAvailable bool         `json:"update_available"`
	CurrentVersion  string       `json:"current_version"`
	Latest          *ReleaseInfo `json:"latest,omitempty"`
	Impact          *ImpactInfo  `json:"impact,omitempty"`
	Dismissed       bool         `json:"dismissed"`
	Stale           bool         `json:"stale"`
	Warning         string       `json:"warning,omitempty"`
	Notification    string       `json:"notification,omitempty"`
}

// ReleaseInfo is the JSON representation of a release.
type ReleaseInfo struct {
	Version     string `json:"version"`
	TagName     string `json:"tag_name"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url,omitempty"`
	Prerelease  bool   `json:"prerelease"`
}

// ImpactInfo is the JSON representation of a changelog impact analysis.
type ImpactInfo struct {
	Severity          string           `json:"severity"`
	BreakingChanges   []string         `json:"breaking_changes"`
	Migrations        []string         `json:"migrations"`
	SecurityFixes     []string         `json:"security_fixes"`
	DependencyUpdates []DependencyInfo `json:"dependency_updates"`
}

// DependencyInfo is a single dependency bump named in the changelog.
type DependencyInfo struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

// UpdateReport is the JSON representation of an update attempt.
type UpdateReport struct {
	Outcome           string   `json:"outcome"`
	Version           string   `json:"version,omitempty"`
	PreviousRef       string   `json:"previous_ref,omitempty"`
	NewRef            string   `json:"new_ref,omitempty"`
	Error             string   `json:"error,omitempty"`
	MigrationWarnings []string `json:"migration_warnings,omitempty"`
}

// DismissalInfo is the JSON representation of one dismissal record.
type DismissalInfo struct {
	Version     string `json:"version"`
	DismissedAt string `json:"dismissed_at"`
	CheckCount  int    `json:"check_count"`
}

// NewStatusReport converts a check outcome into its report representation.
func NewStatusReport(rep application.CheckReport) StatusReport {
	status := StatusReport{
		UpdateAvailable: rep.UpdateAvailable,
		CurrentVersion:  rep.Current.String(),
		Dismissed:       rep.Dismissed,
		Stale:           rep.Stale,
		Warning:         rep.Warning,
		Notification:    rep.Notification,
	}

	if rep.Latest != nil {
		status.Latest = &ReleaseInfo{
			Version:     rep.Latest.Version.String(),
			TagName:     rep.Latest.TagName,
			PublishedAt: rep.Latest.PublishedAt.UTC().Format(time.RFC3339),
			URL:         rep.Latest.URL,
			Prerelease:  rep.Latest.Prerelease,
		}
	}
	if rep.Impact != nil {
		impact := newImpactInfo(*rep.Impact)
		status.Impact = &impact
	}

	return status
}

func newImpactInfo(impact model.ImpactReport) ImpactInfo {
	deps := make([]DependencyInfo, 0, len(impact.DependencyUpdates))
	for _, d := range impact.DependencyUpdates {
		deps = append(deps, DependencyInfo{Name: d.Name, From: d.From, To: d.To})
	}

	return ImpactInfo{
		Severity:          string(impact.Severity),
		BreakingChanges:   impact.BreakingChanges,
		Migrations:        impact.Migrations,
		SecurityFixes:     impact.SecurityFixes,
		DependencyUpdates: deps,
	}
}

// NewUpdateReport converts an update result into its report representation.
func NewUpdateReport(result model.UpdateResult) UpdateReport {
	return UpdateReport{
		Outcome:           string(result.Outcome),
		Version:           result.Version.String(),
		PreviousRef:       result.PreviousRef,
		NewRef:            result.NewRef,
		Error:             result.Error,
		MigrationWarnings: result.MigrationWarnings,
	}
}

// NewDismissalInfo converts a dismissal record into its report representation.
func NewDismissalInfo(d model.Dismissal) DismissalInfo {
	return DismissalInfo{
		Version:     d.Version.String(),
		DismissedAt: d.DismissedAt.UTC().Format(time.RFC3339),
		CheckCount:  d.CheckCount,
	}
}

// WriteJSON writes the report as indented JSON followed by a newline.
func WriteJSON(w io.Writer, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteText writes the human-readable report.
func WriteText(w io.Writer, report Report) {
	writeStatusText(w, report.Status)

	if report.Update != nil {
		writeUpdateText(w, *report.Update)
	}

	if len(report.Dismissals) > 0 {
		fmt.Fprintln(w, "Dismissed versions:")
		for _, d := range report.Dismissals {
			fmt.Fprintf(w, "  %s (dismissed %s, seen %d time(s))\n", d.Version, d.DismissedAt, d.CheckCount)
		}
	}
}

func writeStatusText(w io.Writer, status StatusReport) {
	if status.Warning != "" {
		fmt.Fprintf(w, "warning: %s\n", status.Warning)
	}

	switch {
	case status.UpdateAvailable && status.Notification != "":
		fmt.Fprintln(w, status.Notification)
	case status.UpdateAvailable && status.Dismissed:
		fmt.Fprintf(w, "Update to %s is available but dismissed. Use --clear-dismissals to be notified again.\n",
			status.Latest.Version)
	case status.Latest != nil:
		fmt.Fprintf(w, "Up to date: %s is the newest release.\n", status.CurrentVersion)
	}
}

func writeUpdateText(w io.Writer, update UpdateReport) {
	switch update.Outcome {
	case string(model.UpdateOutcomeUpdated):
		fmt.Fprintf(w, "Updated to %s (%s -> %s).\n", update.Version, update.PreviousRef, update.NewRef)
		for _, warning := range update.MigrationWarnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
	case string(model.UpdateOutcomeRolledBack):
		fmt.Fprintf(w, "Update to %s failed and was rolled back to %s: %s\n",
			update.Version, update.PreviousRef, update.Error)
	case string(model.UpdateOutcomeFailed):
		fmt.Fprintf(w, "Update to %s failed: %s\n", update.Version, update.Error)
	}
}
