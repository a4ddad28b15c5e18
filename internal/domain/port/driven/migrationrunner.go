package driven

import (
	"context"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// MigrationRunner defines the driven port for version-specific migration
// procedures shipped with a release.
type MigrationRunner interface {
	// Run executes the migration registered for the version, if any.
	// It returns ran=false when no migration exists for that version.
	// A migration error is advisory: the update itself already succeeded.
	Run(ctx context.Context, version model.Version) (ran bool, err error)
}
