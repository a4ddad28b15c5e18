package driven

import (
	"context"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// DismissalStore defines the driven port for per-version dismissal records.
// Records are keyed by the version's canonical string.
type DismissalStore interface {
	// Get returns the record for the version, or nil when none exists.
	Get(ctx context.Context, version model.Version) (*model.Dismissal, error)
	Upsert(ctx context.Context, dismissal model.Dismissal) error
	Delete(ctx context.Context, version model.Version) error
	DeleteAll(ctx context.Context) error
	// DeleteOlderThan removes records whose numeric triple is strictly
	// below the given version. Used to prune superseded dismissals.
	DeleteOlderThan(ctx context.Context, version model.Version) error
	// List returns all records ordered by version ascending.
	List(ctx context.Context) ([]model.Dismissal, error)
}
