package model

// Severity classifies how disruptive an update is expected to be.
type Severity string

const (
	SeverityPatch    Severity = "patch"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityBreaking Severity = "breaking"
)

// DeltaSeverity derives a severity from the version distance alone: a major
// bump is "major", a minor bump "minor", anything else "patch". Breaking is
// never inferred from numbers; it requires explicit changelog markers.
func DeltaSeverity(current, latest Version) Severity {
	switch {
	case latest.Major > current.Major:
		return SeverityMajor
	case latest.Major == current.Major && latest.Minor > current.Minor:
		return SeverityMinor
	default:
		return SeverityPatch
	}
}

// DependencyUpdate is a single dependency version change named in a changelog.
type DependencyUpdate struct {
	Name string
	From string
	To   string
}

// ImpactReport summarizes what a changelog says about an update. Slices keep
// the changelog's line order and are never nil.
type ImpactReport struct {
	Severity          Severity
	BreakingChanges   []string
	Migrations        []string
	DependencyUpdates []DependencyUpdate
	SecurityFixes     []string
}

// HasBreaking reports whether any breaking-change marker was found.
func (r ImpactReport) HasBreaking() bool {
	return len(r.BreakingChanges) > 0
}

// RequiresAction reports whether the update demands manual steps.
func (r ImpactReport) RequiresAction() bool {
	return len(r.BreakingChanges) > 0 || len(r.Migrations) > 0
}
