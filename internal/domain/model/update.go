package model

// UpdateOutcome is the terminal state of an update attempt.
type UpdateOutcome string

const (
	UpdateOutcomeUpdated    UpdateOutcome = "updated"
	UpdateOutcomeNoUpdate   UpdateOutcome = "no_update"
	UpdateOutcomeFailed     UpdateOutcome = "failed"
	UpdateOutcomeRolledBack UpdateOutcome = "rolled_back"
)

// UpdateResult describes what an update attempt did to the working tree.
// PreviousRef is the snapshot taken before any mutation; NewRef is set only
// when the tree ends on a new ref. MigrationWarnings carry non-fatal
// migration failures on an otherwise successful update.
type UpdateResult struct {
	Outcome           UpdateOutcome
	Version           Version
	PreviousRef       string
	NewRef            string
	Error             string
	MigrationWarnings []string
}

// Succeeded reports whether the tree now runs the new version.
func (r UpdateResult) Succeeded() bool {
	return r.Outcome == UpdateOutcomeUpdated
}
